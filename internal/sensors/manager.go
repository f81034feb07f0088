package sensors

import (
	"sort"
	"time"

	"trabajante/internal/errcode"
	"trabajante/types"
)

const (
	defaultFailThreshold = 5
	defaultBackoffFactor = 4
	defaultTickBudget    = 4
)

type slot struct {
	key                 string
	cfg                 types.SensorConfig
	driver              Driver
	nextDue             time.Time
	consecutiveFailures int
	degraded            bool
}

// Manager is the sensor registry + scheduler of §4.3. maxSlots mirrors the
// board-dependent MAX_SENSORS bound (10 on the C3, 20 on WROOM).
type Manager struct {
	maxSlots      int
	failThreshold int
	tickBudget    int
	slots         map[string]*slot
}

func NewManager(maxSlots int) *Manager {
	return &Manager{
		maxSlots:      maxSlots,
		failThreshold: defaultFailThreshold,
		tickBudget:    defaultTickBudget,
		slots:         make(map[string]*slot),
	}
}

// Configure begins a driver for cfg and adds it to the registry, keyed by
// config.SensorKey. Replaces any existing entry for the same key (a reconfig
// ends the old driver first, matching "drivers never outlive their manager").
func (m *Manager) Configure(key string, cfg types.SensorConfig, now time.Time) error {
	if existing, ok := m.slots[key]; ok {
		existing.driver.End()
		delete(m.slots, key)
	}
	if len(m.slots) >= m.maxSlots {
		return errcode.New(errcode.MemoryFull, "Configure", "sensor registry full")
	}
	factory := lookup(cfg)
	drv := factory()
	if err := drv.Begin(cfg); err != nil {
		return err
	}
	m.slots[key] = &slot{
		key:     key,
		cfg:     cfg,
		driver:  drv,
		nextDue: now,
	}
	return nil
}

// Remove ends the driver and releases the slot.
func (m *Manager) Remove(key string) {
	if s, ok := m.slots[key]; ok {
		s.driver.End()
		delete(m.slots, key)
	}
}

// Count reports the number of registered sensors, for the heartbeat payload.
func (m *Manager) Count() int { return len(m.slots) }

// orderedKeys returns slot keys sorted for deterministic iteration —
// "zone-deterministic order" per §4.5's config replay note, reused here for
// tick scheduling so test expectations are reproducible.
func (m *Manager) orderedKeys() []string {
	keys := make([]string, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeyedReading pairs a wire reading with its registry key (config.SensorKey
// format), since the wire payload's numeric GPIO field is 0 for bus-addressed
// sensors and can't stand in as a topic identifier on its own.
type KeyedReading struct {
	Key string
	types.SensorReading
}

// Tick reads every sensor whose schedule is due, up to the soft per-tick
// read budget, and returns the assembled readings plus any read failures (for
// the caller to feed into the health/error ring, §4.7). A driver's failure
// increments its consecutive-failure counter; after failThreshold (default
// 5) consecutive misses the sensor is marked degraded and re-armed at
// defaultBackoffFactor times its configured period until one read succeeds.
func (m *Manager) Tick(now time.Time, espID, zoneID string) ([]KeyedReading, []error) {
	var readings []KeyedReading
	var failures []error
	budget := m.tickBudget

	for _, key := range m.orderedKeys() {
		if budget <= 0 {
			break
		}
		s := m.slots[key]
		if now.Before(s.nextDue) {
			continue
		}
		budget--

		period := time.Duration(s.cfg.SamplingMs) * time.Millisecond
		if period <= 0 {
			period = time.Second
		}

		r, err := s.driver.Read()
		if err != nil {
			s.consecutiveFailures++
			if s.consecutiveFailures >= m.failThreshold {
				s.degraded = true
			}
			wait := period
			if s.degraded {
				wait = period * defaultBackoffFactor
			}
			s.nextDue = now.Add(wait)

			gpio := s.cfg.GPIO
			failures = append(failures, errcode.New(errcode.SensorReadFailed, "Tick", key))
			readings = append(readings, invalidReading(key, espID, zoneID, gpio, s.cfg, now))
			continue
		}

		s.consecutiveFailures = 0
		s.degraded = false
		s.nextDue = now.Add(period)

		readings = append(readings, toWireReading(key, espID, zoneID, s.cfg, r, now))
	}
	return readings, failures
}

func invalidReading(key, espID, zoneID string, gpio *int, cfg types.SensorConfig, now time.Time) KeyedReading {
	g := 0
	if gpio != nil {
		g = *gpio
	}
	return KeyedReading{
		Key: key,
		SensorReading: types.SensorReading{
			EspID:      espID,
			ZoneID:     zoneID,
			GPIO:       g,
			SensorType: cfg.SensorType,
			Quality:    types.QualityInvalid,
			TS:         now.Unix(),
			RawMode:    cfg.RawMode,
		},
	}
}

func toWireReading(key, espID, zoneID string, cfg types.SensorConfig, r Reading, now time.Time) KeyedReading {
	g := 0
	if cfg.GPIO != nil {
		g = *cfg.GPIO
	}
	return KeyedReading{
		Key: key,
		SensorReading: types.SensorReading{
			EspID:      espID,
			ZoneID:     zoneID,
			GPIO:       g,
			SensorType: cfg.SensorType,
			Raw:        r.Raw,
			Value:      r.Value,
			Unit:       r.Unit,
			Quality:    types.QualityGood,
			TS:         now.Unix(),
			RawMode:    cfg.RawMode,
			Secondary:  r.Secondary,
		},
	}
}
