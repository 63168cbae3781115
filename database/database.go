package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"

	"municipal-sentinel/config"
	"municipal-sentinel/models"
	"municipal-sentinel/store"
)

// Database is the MySQL-backed report store.
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.DBMaxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &Database{db: db}, nil
}

// FromDB wraps an existing connection. Used by tests.
func FromDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// EnsureReportsTable creates the reports table if it doesn't exist
func (d *Database) EnsureReportsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS reports (
			seq INT NOT NULL AUTO_INCREMENT,
			ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			defect_type VARCHAR(64) NOT NULL,
			severity INT NOT NULL,
			description TEXT,
			material VARCHAR(255),
			priority DOUBLE NOT NULL,
			department VARCHAR(64) NOT NULL,
			justification TEXT,
			location_name VARCHAR(255),
			user_notes TEXT,
			status ENUM('New', 'Pending', 'In Progress', 'Resolved', 'False Alarm') NOT NULL DEFAULT 'New',
			reporter_id VARCHAR(255) NOT NULL,
			PRIMARY KEY (seq),
			INDEX status_index (status),
			INDEX defect_type_index (defect_type),
			INDEX reporter_index (reporter_id)
		)
	`

	_, err := d.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	log.Info("Reports table ensured")
	return nil
}

// CreateReport inserts a new report and derives its id from the
// auto-increment sequence. Rows are never deleted, so the sequence keeps
// ids unique for the store's lifetime.
func (d *Database) CreateReport(ctx context.Context, draft *models.ReportDraft) (*models.Report, error) {
	r := models.NewReport("", time.Now().UTC(), draft)

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO reports (ts, latitude, longitude, defect_type, severity, description,
			material, priority, department, justification, location_name, user_notes, status, reporter_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.Latitude, r.Longitude, r.DefectType, r.SeverityScore, r.Description,
		r.Material, r.PriorityIndex, r.Department, r.Justification, r.LocationName, r.UserNotes,
		r.Status, r.Reporter)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get report seq: %w", err)
	}
	r.ID = models.FormatReportID(seq)

	log.Infof("Report %s created for reporter %s", r.ID, r.Reporter)
	return &r, nil
}

// UpdateStatus sets the status of a report. Returns store.ErrNotFound
// when the id does not resolve to a stored report.
func (d *Database) UpdateStatus(ctx context.Context, id, status string) error {
	seq, err := models.ParseReportID(id)
	if err != nil {
		return store.ErrNotFound
	}

	// Check existence first: an UPDATE that sets the current status again
	// affects zero rows, which is indistinguishable from a missing report.
	var exists int
	err = d.db.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE seq = ?", seq).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to check if report exists: %w", err)
	}

	_, err = d.db.ExecContext(ctx, "UPDATE reports SET status = ? WHERE seq = ?", status, seq)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}

	log.Infof("Report %s status set to %s", id, status)
	return nil
}

// GetAllReports returns every report in insertion order.
func (d *Database) GetAllReports(ctx context.Context) ([]models.Report, error) {
	query := `
		SELECT seq, ts, latitude, longitude, defect_type, severity, description,
			material, priority, department, justification, location_name, user_notes, status, reporter_id
		FROM reports
		ORDER BY seq ASC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		var seq int64
		err := rows.Scan(
			&seq,
			&r.Timestamp,
			&r.Latitude,
			&r.Longitude,
			&r.DefectType,
			&r.SeverityScore,
			&r.Description,
			&r.Material,
			&r.PriorityIndex,
			&r.Department,
			&r.Justification,
			&r.LocationName,
			&r.UserNotes,
			&r.Status,
			&r.Reporter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.ID = models.FormatReportID(seq)
		reports = append(reports, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}
