// internal/config/database.go
package config

import (
	"fmt"
	"strings"
)

// DSN builds the postgres connection string. Values are single-quoted so
// passwords may contain spaces.
func (d *DatabaseConfig) DSN() string {
	parts := []string{
		"host=" + quoteDSN(d.Host),
		"port=" + quoteDSN(d.Port),
		"user=" + quoteDSN(d.User),
		"dbname=" + quoteDSN(d.Database),
		"sslmode=" + quoteDSN(d.SSLMode),
		"application_name=imi-licensing",
		"TimeZone=UTC",
	}
	if d.Password != "" {
		parts = append(parts, "password="+quoteDSN(d.Password))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return fmt.Sprintf("'%s'", v)
}
