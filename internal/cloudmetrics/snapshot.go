package cloudmetrics

import (
	"context"
	"errors"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Snapshot refreshes point-in-time gauges right before each push.
type Snapshot struct {
	db            *gorm.DB
	entitlements  *prometheus.GaugeVec
	memoryInUse   prometheus.Gauge
	recipesStored prometheus.Gauge
}

func NewSnapshot(reg prometheus.Registerer, db *gorm.DB) (*Snapshot, error) {
	entitlements := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recipeverse_entitlements",
		Help: "Entitlement records by tier.",
	}, []string{"tier"})
	memory := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recipeverse_memory_sys_bytes",
		Help: "Bytes of memory obtained from the OS.",
	})
	recipes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recipeverse_recipes_stored",
		Help: "Archived recipes.",
	})

	var err error
	if entitlements, err = register(reg, entitlements); err != nil {
		return nil, err
	}
	if memory, err = register(reg, memory); err != nil {
		return nil, err
	}
	if recipes, err = register(reg, recipes); err != nil {
		return nil, err
	}
	return &Snapshot{db: db, entitlements: entitlements, memoryInUse: memory, recipesStored: recipes}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *Snapshot) Refresh(ctx context.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.memoryInUse.Set(float64(mem.Sys))

	if s.db == nil {
		return nil
	}

	var rows []struct {
		Tier  string
		Total int64
	}
	if err := s.db.WithContext(ctx).
		Raw(`SELECT tier, COUNT(*) AS total FROM entitlements GROUP BY tier`).
		Scan(&rows).Error; err != nil {
		return err
	}
	s.entitlements.Reset()
	for _, row := range rows {
		s.entitlements.WithLabelValues(row.Tier).Set(float64(row.Total))
	}

	var recipes int64
	if err := s.db.WithContext(ctx).Table("recipes").Count(&recipes).Error; err != nil {
		return err
	}
	s.recipesStored.Set(float64(recipes))
	return nil
}
