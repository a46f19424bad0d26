package config

type CatalogConfig struct {
	Path string
}

// Enabled reports whether challenges come from a YAML catalog instead of Postgres
func (c *CatalogConfig) Enabled() bool {
	return c.Path != ""
}

func NewCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		Path: getEnv("CATALOG_PATH", ""),
	}
}
