package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"attendr/internal/platform/models"
)

// ErrAmbiguousCode is returned when a code lookup matches more than one
// user.
var ErrAmbiguousCode = errors.New("code matches more than one user")

const userColumns = `id, email, password_hash, full_name, role, photo_url, code, category, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.PhotoURL, &user.Code, &user.Category, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) BeginTx() (*sql.Tx, error) {
	return r.db.Begin()
}

func (r *UserRepository) CreateTx(tx *sql.Tx, user *models.User) error {
	_, err := tx.Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Role, user.PhotoURL, user.Code, user.Category, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) Create(user *models.User) error {
	_, err := r.db.Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Role, user.PhotoURL, user.Code, user.Category, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) getOne(where string, arg interface{}) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	return r.getOne(`id = ?`, id)
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getOne(`email = ?`, email)
}

// GetByCode matches the printed identifier case-insensitively.
func (r *UserRepository) GetByCode(code string) (*models.User, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	rows, err := r.db.Query(`SELECT `+userColumns+` FROM users WHERE code <> '' AND UPPER(code) = UPPER(?) LIMIT 2`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found *models.User
	for rows.Next() {
		if found != nil {
			return nil, ErrAmbiguousCode
		}
		if found, err = scanUser(rows); err != nil {
			return nil, err
		}
	}
	return found, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// NextStudentNumberTx reserves the next student number for tag. It is one
// past both the highest TAG-N code in use and the highest number ever
// issued, so numbers of deleted students are never handed out again.
func (r *UserRepository) NextStudentNumberTx(tx *sql.Tx, tag string) (int, error) {
	var inUse int
	err := tx.QueryRow(`
		SELECT COALESCE(MAX(CAST(SUBSTR(code, ?) AS INTEGER)), 0) FROM users
		WHERE UPPER(code) LIKE UPPER(?) ESCAPE '\'
	`, utf8.RuneCountInString(tag)+2, likeEscaper.Replace(tag)+"-%").Scan(&inUse)
	if err != nil {
		return 0, err
	}

	var issued int
	err = tx.QueryRow(`SELECT last FROM code_sequences WHERE tag = ?`, tag).Scan(&issued)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	next := max(inUse, issued) + 1
	_, err = tx.Exec(`
		INSERT INTO code_sequences (tag, last) VALUES (?, ?)
		ON CONFLICT(tag) DO UPDATE SET last = excluded.last
	`, tag, next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// List returns users ordered by name, optionally restricted to one role.
func (r *UserRepository) List(role string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY full_name, id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountByRole(role string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

func (r *UserRepository) CountByRoleTx(tx *sql.Tx, role string) (int, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

// Update writes the mutable profile fields. It reports false when no user
// has the given id.
func (r *UserRepository) Update(user *models.User) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE users SET email = ?, full_name = ?, role = ?, photo_url = ?, code = ?, category = ?, updated_at = ?
		WHERE id = ?
	`, user.Email, user.FullName, user.Role, user.PhotoURL, user.Code, user.Category, user.UpdatedAt, user.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *UserRepository) UpdatePhoto(id, photoURL string, updatedAt int64) (bool, error) {
	res, err := r.db.Exec(`UPDATE users SET photo_url = ?, updated_at = ? WHERE id = ?`, photoURL, updatedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *UserRepository) UpdatePassword(id, hash string, updatedAt int64) error {
	_, err := r.db.Exec(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, updatedAt, id)
	return err
}

func (r *UserRepository) Delete(id string) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM parent_students WHERE student_id = ? OR parent_user_id = ?`, id, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM parents WHERE user_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

type ParentRepository struct {
	db *sql.DB
}

func NewParentRepository(db *sql.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

func upsertParentTx(tx *sql.Tx, p *models.Parent) error {
	_, err := tx.Exec(`
		INSERT INTO parents (user_id, phone, notification_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			phone = CASE WHEN excluded.phone <> '' THEN excluded.phone ELSE parents.phone END,
			notification_email = CASE WHEN excluded.notification_email <> '' THEN excluded.notification_email ELSE parents.notification_email END,
			updated_at = excluded.updated_at
	`, p.UserID, p.Phone, p.NotificationEmail, p.CreatedAt, p.UpdatedAt)
	return err
}

func addStudentsTx(tx *sql.Tx, parentUserID string, studentIDs []string) error {
	for _, sid := range studentIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO parent_students (parent_user_id, student_id) VALUES (?, ?)`, parentUserID, sid); err != nil {
			return err
		}
	}
	return nil
}

// Save creates the parent profile or merges into an existing one: students
// are added to the set, and non-empty contact fields replace stored ones.
func (r *ParentRepository) Save(p *models.Parent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertParentTx(tx, p); err != nil {
		return fmt.Errorf("upsert parent: %w", err)
	}
	if err := addStudentsTx(tx, p.UserID, p.StudentIDs); err != nil {
		return fmt.Errorf("link students: %w", err)
	}
	return tx.Commit()
}

func (r *ParentRepository) Get(userID string) (*models.Parent, error) {
	p := &models.Parent{}
	err := r.db.QueryRow(`
		SELECT user_id, phone, notification_email, created_at, updated_at
		FROM parents WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Phone, &p.NotificationEmail, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.Query(`SELECT student_id FROM parent_students WHERE parent_user_id = ? ORDER BY student_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p.StudentIDs = []string{}
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		p.StudentIDs = append(p.StudentIDs, sid)
	}
	return p, rows.Err()
}

func (r *ParentRepository) ListStudents(parentUserID string) ([]*models.User, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.email, u.password_hash, u.full_name, u.role, u.photo_url, u.code, u.category, u.created_at, u.updated_at
		FROM parent_students ps JOIN users u ON u.id = ps.student_id
		WHERE ps.parent_user_id = ?
		ORDER BY u.full_name, u.id
	`, parentUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListContactsByStudent returns every parent linked to the student.
func (r *ParentRepository) ListContactsByStudent(studentID string) ([]models.ParentContact, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.full_name, u.email, p.notification_email, p.phone
		FROM parent_students ps
		JOIN parents p ON p.user_id = ps.parent_user_id
		JOIN users u ON u.id = p.user_id
		WHERE ps.student_id = ?
		ORDER BY u.full_name, u.id
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.ParentContact{}
	for rows.Next() {
		var c models.ParentContact
		if err := rows.Scan(&c.ParentID, &c.ParentName, &c.ParentEmail, &c.NotificationEmail, &c.Phone); err != nil {
			return nil, err
		}
		if c.NotificationEmail == "" {
			c.NotificationEmail = c.ParentEmail
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// NotificationEmails returns the distinct addresses to notify for a student.
func (r *ParentRepository) NotificationEmails(studentID string) ([]string, error) {
	contacts, err := r.ListContactsByStudent(studentID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(contacts))
	var emails []string
	for _, c := range contacts {
		to := c.Recipient()
		if to == "" || seen[to] {
			continue
		}
		seen[to] = true
		emails = append(emails, to)
	}
	return emails, nil
}
