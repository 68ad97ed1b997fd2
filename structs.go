package main

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

const HectoPascal = 100 * physic.Pascal

type SensorReading struct {
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
	Humidity    float64   `json:"humidity"`
	CO2         uint16    `json:"co2,omitempty"`
	Updated     time.Time `json:"-"`
	UpdatedStr  string    `json:"updated"`
}

func NewSensorReading(date time.Time) SensorReading {
	return SensorReading{
		Updated:    date,
		UpdatedStr: date.Format("2006-01-02 15:04:05"), // ISO 8601 without timezone
	}
}

func (r *SensorReading) SetEnv(env physic.Env) {
	r.Temperature = env.Temperature.Celsius()
	r.Pressure = float64(env.Pressure) / float64(HectoPascal)
	r.Humidity = float64(env.Humidity) / float64(physic.PercentRH)
}

// readingStore keeps the latest reading and fans it out to subscribers.
type readingStore struct {
	mu      sync.RWMutex
	current SensorReading
	have    bool
	subs    map[chan SensorReading]struct{}
}

func newReadingStore() *readingStore {
	return &readingStore{subs: map[chan SensorReading]struct{}{}}
}

func (s *readingStore) Get() (SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.have
}

// Set stores r and hands it to every subscriber that is ready for it. Slow
// subscribers miss readings rather than block the sensor loop.
func (s *readingStore) Set(r SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = r
	s.have = true
	for c := range s.subs {
		select {
		case c <- r:
		default:
		}
	}
}

// Subscribe returns a channel receiving new readings and a function to
// unregister it.
func (s *readingStore) Subscribe() (<-chan SensorReading, func()) {
	c := make(chan SensorReading, 1)
	s.mu.Lock()
	s.subs[c] = struct{}{}
	s.mu.Unlock()
	return c, func() {
		s.mu.Lock()
		delete(s.subs, c)
		s.mu.Unlock()
	}
}
