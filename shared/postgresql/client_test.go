package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name: "all settings",
			config: Config{
				Host:            "db",
				Port:            5432,
				User:            "hub",
				Password:        "secret",
				Database:        "dataset_hub",
				SSLMode:         "disable",
				ApplicationName: "dataset-hub-worker",
			},
			want: "host=db port=5432 user=hub password=secret dbname=dataset_hub sslmode=disable application_name=dataset-hub-worker",
		},
		{
			name:   "empty settings are omitted",
			config: Config{Host: "db", Database: "dataset_hub"},
			want:   "host=db dbname=dataset_hub",
		},
		{
			name:   "quoted values",
			config: Config{Host: "db", Password: `it's a \secret`},
			want:   `host=db password='it\'s a \\secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestSchema_Embedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS data_sets")
	assert.Contains(t, schema, "meta_data_classes")
}
