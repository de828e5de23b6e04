package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockLevelProvider supplies point-in-time lot figures for the observable gauges
type StockLevelProvider interface {
	// TotalAvailable sums available units over active lots
	TotalAvailable(ctx context.Context) (int64, error)
	// CountExpiring counts active lots with stock expiring on or before cutoff
	CountExpiring(ctx context.Context, cutoff time.Time) (int64, error)
}

// InventoryMetrics records lot inventory activity.
type InventoryMetrics struct {
	logger *zap.Logger

	unitsDeducted   *Counter
	deductions      *Counter
	shortfalls      *Counter
	writeOffs       *Counter
	lotsPerDeduct   *Histogram
	sweepDuration   *Histogram
	sweepLotsMarked *Counter
}

// InventoryMetricsConfig holds the dependencies of InventoryMetrics
type InventoryMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	StockLevels    StockLevelProvider // optional; enables the gauges
	ExpiringWithin time.Duration      // window for the expiring-lots gauge
}

// NewInventoryMetrics creates the inventory instruments on the given meter
func NewInventoryMetrics(cfg InventoryMetricsConfig) (*InventoryMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &InventoryMetrics{logger: logger}
	var err error
	if m.unitsDeducted, err = NewCounter(cfg.Meter, "rx_inventory_units_deducted_total", "Units deducted from lots for sales", "{units}"); err != nil {
		return nil, err
	}
	if m.deductions, err = NewCounter(cfg.Meter, "rx_inventory_deductions_total", "Deduction requests by outcome", "{deductions}"); err != nil {
		return nil, err
	}
	if m.shortfalls, err = NewCounter(cfg.Meter, "rx_inventory_shortfall_units_total", "Units requested but not covered by available lots", "{units}"); err != nil {
		return nil, err
	}
	if m.writeOffs, err = NewCounter(cfg.Meter, "rx_inventory_write_off_units_total", "Units removed from sellable stock by expiry or damage", "{units}"); err != nil {
		return nil, err
	}
	if m.lotsPerDeduct, err = NewHistogram(cfg.Meter, "rx_inventory_lots_per_deduction", "Number of lots touched by one deduction", "{lots}", LotCountBuckets...); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = NewHistogram(cfg.Meter, "rx_inventory_expiry_sweep_duration_seconds", "Duration of expiry sweeps", "s", SweepDurationBuckets...); err != nil {
		return nil, err
	}
	if m.sweepLotsMarked, err = NewCounter(cfg.Meter, "rx_inventory_expiry_sweep_lots_total", "Lots processed by expiry sweeps by outcome", "{lots}"); err != nil {
		return nil, err
	}

	if cfg.StockLevels != nil {
		if err := m.registerGauges(cfg.Meter, cfg.StockLevels, cfg.ExpiringWithin); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *InventoryMetrics) registerGauges(meter metric.Meter, provider StockLevelProvider, window time.Duration) error {
	available, err := meter.Int64ObservableGauge("rx_inventory_available_units",
		metric.WithDescription("Available units across active lots"),
		metric.WithUnit("{units}"))
	if err != nil {
		return err
	}
	expiring, err := meter.Int64ObservableGauge("rx_inventory_expiring_lots",
		metric.WithDescription("Active lots with stock expiring within the configured window"),
		metric.WithUnit("{lots}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		if total, err := provider.TotalAvailable(ctx); err != nil {
			m.logger.Warn("Failed to collect available units", zap.Error(err))
		} else {
			o.ObserveInt64(available, total)
		}
		if count, err := provider.CountExpiring(ctx, time.Now().UTC().Add(window)); err != nil {
			m.logger.Warn("Failed to collect expiring lots", zap.Error(err))
		} else {
			o.ObserveInt64(expiring, count)
		}
		return nil
	}, available, expiring)
	return err
}

// RecordDeduction records a committed deduction spanning lots
func (m *InventoryMetrics) RecordDeduction(ctx context.Context, units, lots int) {
	m.unitsDeducted.Add(ctx, int64(units))
	m.deductions.Inc(ctx, AttrOutcome.String("committed"))
	m.lotsPerDeduct.Record(ctx, float64(lots))
}

// RecordShortfall records a request the available lots could not cover
func (m *InventoryMetrics) RecordShortfall(ctx context.Context, shortfall int) {
	m.shortfalls.Add(ctx, int64(shortfall))
	m.deductions.Inc(ctx, AttrOutcome.String("insufficient"))
}

// RecordWriteOff records units removed from sellable stock
func (m *InventoryMetrics) RecordWriteOff(ctx context.Context, txType string, units int) {
	m.writeOffs.Add(ctx, int64(units), AttrTransactionType.String(txType))
}

// RecordExpirySweep records the outcome of one expiry sweep
func (m *InventoryMetrics) RecordExpirySweep(ctx context.Context, succeeded, failed int, elapsed time.Duration) {
	m.sweepDuration.RecordDuration(ctx, elapsed)
	m.sweepLotsMarked.Add(ctx, int64(succeeded), AttrOutcome.String("expired"))
	if failed > 0 {
		m.sweepLotsMarked.Add(ctx, int64(failed), AttrOutcome.String("failed"))
	}
}

// GormStockLevelProvider implements StockLevelProvider against product_batches.
type GormStockLevelProvider struct {
	db *gorm.DB
}

// NewGormStockLevelProvider creates a GormStockLevelProvider
func NewGormStockLevelProvider(db *gorm.DB) *GormStockLevelProvider {
	return &GormStockLevelProvider{db: db}
}

// TotalAvailable sums available units over active lots
func (p *GormStockLevelProvider) TotalAvailable(ctx context.Context) (int64, error) {
	var total int64
	err := p.db.WithContext(ctx).
		Table("product_batches").
		Select("COALESCE(SUM(quantity_available), 0)").
		Where("status = ?", "active").
		Scan(&total).Error
	return total, err
}

// CountExpiring counts active lots with stock expiring on or before cutoff
func (p *GormStockLevelProvider) CountExpiring(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("product_batches").
		Where("status = ? AND quantity_available > 0", "active").
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", cutoff).
		Count(&count).Error
	return count, err
}
