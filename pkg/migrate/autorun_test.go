package migrate

import (
	"testing"

	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/db"
)

func TestShouldAutoRun(t *testing.T) {
	dev := &config.Config{App: config.AppConfig{Env: "dev", AutoMigrate: true}}
	prod := &config.Config{App: config.AppConfig{Env: "prod", AutoMigrate: true}}
	devOff := &config.Config{App: config.AppConfig{Env: "dev"}}

	cases := []struct {
		name   string
		cfg    *config.Config
		driver string
		want   bool
	}{
		{"sqlite always", prod, db.DriverSQLite, true},
		{"postgres dev flag", dev, db.DriverPostgres, true},
		{"postgres dev without flag", devOff, db.DriverPostgres, false},
		{"postgres prod", prod, db.DriverPostgres, false},
		{"nil config", nil, db.DriverSQLite, false},
	}
	for _, tc := range cases {
		if got := ShouldAutoRun(tc.cfg, tc.driver); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
