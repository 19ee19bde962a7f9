// Package database provides the SQL connection behind the credential store,
// role registry and audit log.
//
// Two drivers are supported:
//   - sqlite (default): mattn/go-sqlite3, WAL mode, single writer
//   - postgres: pgx through database/sql
//
// Both are migrated by goose from one embedded set of NNNNN_name.sql files.
//
// Stores write portable SQL with "?" placeholders and pass it through
// Dialect.Rebind. Duplicate detection goes through Dialect.IsUniqueViolation
// so both engines report the same domain errors.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The SQLite file is chmod 0600
//   - Password hashes are stored, never plaintext
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Driver: cfg.Database.Driver,
//	    Path:   cfg.Database.Path,
//	    DSN:    cfg.Database.DSN,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
