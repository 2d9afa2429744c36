package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"famride/internal/database"
	"famride/internal/models"
)

// ErrNotFound reports that a referenced row does not exist, e.g. a family
// update naming an unknown member id.
var ErrNotFound = errors.New("not found")

// addToSet adds id to a JSON id-array column. Adding an id that is already
// present is a no-op. The read and write should run inside a transaction;
// call it through a repository bound to one.
func addToSet(q database.DBTX, table, column string, rowID, id int64) error {
	set, err := readSet(q, table, column, rowID)
	if err != nil {
		return err
	}
	return writeSet(q, table, column, rowID, set.Add(id))
}

// pullFromSet removes id from a JSON id-array column. Removing an id that
// is absent is a no-op.
func pullFromSet(q database.DBTX, table, column string, rowID, id int64) error {
	set, err := readSet(q, table, column, rowID)
	if err != nil {
		return err
	}
	return writeSet(q, table, column, rowID, set.Remove(id))
}

func readSet(q database.DBTX, table, column string, rowID int64) (models.IDSet, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table)
	var set models.IDSet
	err := q.QueryRow(query, rowID).Scan(&set)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %d: %w", table, rowID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}
	return set, nil
}

func writeSet(q database.DBTX, table, column string, rowID int64, set models.IDSet) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", table, column)
	if _, err := q.Exec(query, set, rowID); err != nil {
		return fmt.Errorf("failed to write %s.%s: %w", table, column, err)
	}
	return nil
}
