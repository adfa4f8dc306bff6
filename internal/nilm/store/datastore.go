package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/nilm-chat/internal/model"
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

var _ Factory = (*datastore)(nil)

// NewFactory returns a Factory backed by db.
func NewFactory(db *gorm.DB) Factory {
	return &datastore{db: db}
}

// Measurements returns the measurement store.
func (ds *datastore) Measurements() MeasurementStore {
	return newMeasurements(ds.db)
}

// Sessions returns the session store.
func (ds *datastore) Sessions() SessionStore {
	return newSessions(ds.db)
}

// Messages returns the message store.
func (ds *datastore) Messages() MessageStore {
	return newMessages(ds.db)
}

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate(ctx context.Context) error {
	return ds.db.WithContext(ctx).AutoMigrate(model.AllModels()...)
}

// ResetMeasurements drops the electrical_data table and recreates it empty.
// Chat sessions and messages are kept.
func (ds *datastore) ResetMeasurements(ctx context.Context) error {
	m := ds.db.WithContext(ctx).Migrator()
	if err := m.DropTable(&model.ElectricalData{}); err != nil {
		return err
	}
	return m.AutoMigrate(&model.ElectricalData{})
}

// Close is a no-op; the connection is owned by the db component.
func (ds *datastore) Close() error {
	return nil
}
