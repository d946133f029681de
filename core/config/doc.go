// Package config provides configuration management for the OSS Manager.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Server: HTTP server settings (port, API key, body limit)
//   - Storage: endpoint, credentials, region, default bucket and the enabled flag
//   - Log: logging level and format
//   - Database: optional MySQL connection backing the object catalog
//
// Nested keys map to upper-case environment variables joined by underscores, so
// storage.access_key is read from STORAGE_ACCESS_KEY.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Endpoint)
package config
