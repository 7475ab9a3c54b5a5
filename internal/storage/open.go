package storage

import (
	"fmt"
	"time"
)

// Open returns the Store implementation selected by driver.
func Open(driver, path string, timeout time.Duration) (Store, error) {
	switch driver {
	case "sqlite", "":
		return OpenSQLite(path)
	case "bolt":
		return OpenBolt(path, timeout)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
