package enums

import "fmt"

// StorageDriver selects the backend behind the persistent key-value store.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverRedis    StorageDriver = "redis"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverPostgres StorageDriver = "postgres"
)

var validStorageDrivers = []StorageDriver{
	StorageDriverMemory,
	StorageDriverRedis,
	StorageDriverSQLite,
	StorageDriverPostgres,
}

// IsValid reports whether the value matches a supported storage driver.
func (d StorageDriver) IsValid() bool {
	for _, candidate := range validStorageDrivers {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseStorageDriver converts the raw string to StorageDriver.
func ParseStorageDriver(value string) (StorageDriver, error) {
	for _, candidate := range validStorageDrivers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid storage driver %q", value)
}
