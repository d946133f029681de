// Package database handles the optional MySQL connection.
//
// It wraps GORM to configure a pooled connection from the application's
// configuration. The connection backs the object catalog only; when it is
// disabled or unreachable the rest of the application keeps working.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("Optional database connection failed", zap.Error(err))
//	}
package database
