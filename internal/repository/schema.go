package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
)

// schemaStatements creates the four tables the board works with. Times are
// stored as UTC DATETIME; the DSN opened by database.Open uses loc=UTC.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS course_templates (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(100) NOT NULL UNIQUE,
		description TEXT NOT NULL,
		is_active   TINYINT(1) NOT NULL DEFAULT 1
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS course_items (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		course_id      BIGINT UNSIGNED NOT NULL,
		item_name      VARCHAR(100) NOT NULL,
		kind           ENUM('standard','main') NOT NULL DEFAULT 'standard',
		offset_minutes INT NOT NULL DEFAULT 0,
		display_order  INT NOT NULL DEFAULT 1,
		making_place   ENUM('kitchen','pizza','both') NOT NULL DEFAULT 'kitchen',
		memo           TEXT NOT NULL,
		KEY idx_course_items_course (course_id, display_order),
		CONSTRAINT fk_course_items_course FOREIGN KEY (course_id)
			REFERENCES course_templates(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		course_id   BIGINT UNSIGNED NOT NULL,
		reserved_at DATETIME NOT NULL,
		guest_name  VARCHAR(100) NOT NULL,
		guest_count INT NOT NULL,
		table_no    VARCHAR(20) NOT NULL,
		status      ENUM('reserved','arrived','cancelled','completed') NOT NULL DEFAULT 'reserved',
		note        TEXT NOT NULL,
		main_choice VARCHAR(255) NOT NULL DEFAULT '',
		arrived_at  DATETIME NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_reservations_table_time (table_no, reserved_at),
		KEY idx_reservations_time (reserved_at),
		CONSTRAINT fk_reservations_course FOREIGN KEY (course_id)
			REFERENCES course_templates(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS progress_records (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		course_item_id BIGINT UNSIGNED NOT NULL,
		scheduled_time DATETIME NOT NULL,
		is_cooked      TINYINT(1) NOT NULL DEFAULT 0,
		cooked_at      DATETIME NULL,
		is_served      TINYINT(1) NOT NULL DEFAULT 0,
		served_at      DATETIME NULL,
		main_detail    VARCHAR(50) NOT NULL DEFAULT '',
		quantity       INT NOT NULL DEFAULT 1,
		KEY idx_progress_reservation (reservation_id),
		KEY idx_progress_cooked (cooked_at),
		KEY idx_progress_served (served_at),
		CONSTRAINT fk_progress_reservation FOREIGN KEY (reservation_id)
			REFERENCES reservations(id) ON DELETE CASCADE,
		CONSTRAINT fk_progress_item FOREIGN KEY (course_item_id)
			REFERENCES course_items(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema executes CREATE TABLE statements so a fresh database gets
// the right layout. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}

// isReferenced reports whether err is a MySQL foreign-key violation raised
// by deleting a parent row that still has children.
func isReferenced(err error) bool {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1451
	}
	return false
}
