package readings

import (
	"testing"
	"time"

	"github.com/savegress/vitalink/pkg/models"
)

func tempReading(value float64, ts time.Time) models.Reading {
	return models.Reading{
		Kind:        models.KindTemperature,
		Timestamp:   ts,
		Valid:       true,
		Temperature: &models.TemperatureReading{Value: value, Unit: "C"},
	}
}

func TestStore_AddAndLatest(t *testing.T) {
	store := NewStore(10)
	now := time.Now()

	store.Add(tempReading(36.5, now))
	store.Add(tempReading(36.8, now.Add(time.Second)))

	latest, ok := store.Latest(models.KindTemperature)
	if !ok {
		t.Fatal("expected a latest reading")
	}
	if latest.Temperature.Value != 36.8 {
		t.Errorf("latest = %v, want 36.8", latest.Temperature.Value)
	}

	if _, ok := store.Latest(models.KindGlucose); ok {
		t.Error("kind with no readings should report no latest")
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	store := NewStore(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		store.Add(tempReading(float64(30+i), now.Add(time.Duration(i)*time.Second)))
	}

	history := store.History(models.KindTemperature)
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Temperature.Value != 32 {
		t.Errorf("oldest retained = %v, want 32", history[0].Temperature.Value)
	}
	if history[2].Temperature.Value != 34 {
		t.Errorf("newest = %v, want 34", history[2].Temperature.Value)
	}
}

func TestStore_InvalidReadingsIgnored(t *testing.T) {
	store := NewStore(10)

	store.Add(models.Reading{Kind: models.KindTemperature, Valid: false})

	if len(store.History(models.KindTemperature)) != 0 {
		t.Error("invalid readings should not be stored")
	}
}

func TestStore_KindsCanonicalOrder(t *testing.T) {
	store := NewStore(10)
	now := time.Now()

	store.Add(models.Reading{
		Kind:      models.KindBattery,
		Timestamp: now,
		Valid:     true,
		Battery:   &models.BatteryReading{Level: 90},
	})
	store.Add(tempReading(36.5, now))

	kinds := store.Kinds()
	if len(kinds) != 2 {
		t.Fatalf("kinds = %v, want 2 entries", kinds)
	}
	if kinds[0] != models.KindTemperature || kinds[1] != models.KindBattery {
		t.Errorf("kinds = %v, want [temperature battery]", kinds)
	}
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	store := NewStore(10)
	store.Add(tempReading(36.5, time.Now()))

	history := store.History(models.KindTemperature)
	history[0].Temperature = &models.TemperatureReading{Value: 0}

	again := store.History(models.KindTemperature)
	if again[0].Temperature.Value != 36.5 {
		t.Error("mutating a returned history slice must not affect the store")
	}
}

func TestStore_ClearAndStats(t *testing.T) {
	store := NewStore(10)
	now := time.Now()
	store.Add(tempReading(36.5, now))
	store.Add(tempReading(36.6, now))

	stats := store.Stats()
	if stats.TotalReadings != 2 || stats.StoredReadings != 2 {
		t.Errorf("stats = %+v, want 2 total and 2 stored", stats)
	}
	if stats.ByKind["temperature"] != 2 {
		t.Errorf("by-kind count = %d, want 2", stats.ByKind["temperature"])
	}

	store.Clear()
	if len(store.History(models.KindTemperature)) != 0 {
		t.Error("clear should discard stored readings")
	}
}

func TestStore_DefaultSize(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	for i := 0; i < 15; i++ {
		store.Add(tempReading(float64(i), now))
	}

	if got := len(store.History(models.KindTemperature)); got != DefaultHistorySize {
		t.Errorf("history length = %d, want %d", got, DefaultHistorySize)
	}
}
