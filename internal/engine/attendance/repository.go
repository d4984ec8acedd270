package attendance

import (
	"database/sql"
	"strings"
)

const recordColumns = `id, user_id, user_name, user_role, check_in_time, check_out_time, date, status, recorded_by, created_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanRecord(row interface{ Scan(...interface{}) error }) (*Record, error) {
	r := &Record{}
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.UserRole, &r.CheckInTime, &r.CheckOutTime, &r.Date, &r.Status, &r.RecordedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) Create(rec *Record) error {
	_, err := r.db.Exec(`
		INSERT INTO attendance (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.UserName, rec.UserRole, rec.CheckInTime, rec.CheckOutTime, rec.Date, rec.Status, rec.RecordedBy, rec.CreatedAt)
	return err
}

func (r *Repository) GetByID(id string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(`SELECT `+recordColumns+` FROM attendance WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *Repository) GetByUserAndDate(userID, date string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(`SELECT `+recordColumns+` FROM attendance WHERE user_id = ? AND date = ?`, userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// SetCheckOut stamps the check-out time once; it reports false when the
// record was already checked out.
func (r *Repository) SetCheckOut(id string, at int64) (bool, error) {
	res, err := r.db.Exec(`UPDATE attendance SET check_out_time = ? WHERE id = ? AND check_out_time IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) List(f Filter) ([]*Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Date != "" {
		where = append(where, "date = ?")
		args = append(args, f.Date)
	}
	if f.Role != "" {
		where = append(where, "user_role = ?")
		args = append(args, f.Role)
	}

	query := `SELECT ` + recordColumns + ` FROM attendance`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, check_in_time DESC, id LIMIT 1000`

	return r.query(query, args...)
}

// ListForUser returns a user's records with start <= date <= end. Empty
// bounds are open.
func (r *Repository) ListForUser(userID, start, end string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance WHERE user_id = ?`
	args := []interface{}{userID}
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date`
	return r.query(query, args...)
}

func (r *Repository) query(query string, args ...interface{}) ([]*Record, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByDate returns all records and present-or-late records for a day.
func (r *Repository) CountByDate(date string) (total, present int, err error) {
	err = r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status IN ('present', 'late') THEN 1 ELSE 0 END), 0)
		FROM attendance WHERE date = ?
	`, date).Scan(&total, &present)
	return total, present, err
}

// MarkArrived turns an absent record into a check-in.
func (r *Repository) MarkArrived(id string, at int64, status string) (bool, error) {
	res, err := r.db.Exec(`UPDATE attendance SET check_in_time = ?, status = ? WHERE id = ? AND check_in_time IS NULL`, at, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAbsent inserts an absent record for every user of role without a
// record on date and returns how many were inserted.
func (r *Repository) MarkAbsent(role, date string, createdAt int64) (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO attendance (`+recordColumns+`)
		SELECT 'absent-' || ? || '-' || u.id, u.id, u.full_name, u.role, NULL, NULL, ?, ?, 'system', ?
		FROM users u
		WHERE u.role = ? AND NOT EXISTS (
			SELECT 1 FROM attendance a WHERE a.user_id = u.id AND a.date = ?
		)
	`, date, date, StatusAbsent, createdAt, role, date)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
