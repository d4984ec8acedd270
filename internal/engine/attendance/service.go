package attendance

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"attendr/internal/engine/notify"
	"attendr/internal/pkg/metrics"
	"attendr/internal/platform/models"
)

type UserLookup interface {
	GetByID(id string) (*models.User, error)
	GetByCode(code string) (*models.User, error)
	CountByRole(role string) (int, error)
}

type RecipientLookup interface {
	NotificationEmails(studentID string) ([]string, error)
}

type Notifier interface {
	Notify(ctx context.Context, e notify.Event, recipients []string) notify.Result
}

// Publisher receives every recorded scan, e.g. a webhook dispatcher.
type Publisher interface {
	Publish(eventType string, data interface{})
}

type Options struct {
	Location  *time.Location
	LateAfter time.Duration
	// PayloadPrefix is the institution tag and year printed before the
	// user code in card payloads.
	PayloadPrefix string
	Events        Publisher
}

// ScanEvent is the payload published for each scan.
type ScanEvent struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role"`
	Status   string `json:"status"`
	Date     string `json:"date"`
	At       int64  `json:"at"`
}

type Service struct {
	repo       *Repository
	users      UserLookup
	recipients RecipientLookup
	notifier   Notifier
	opts       Options
	now        func() time.Time
}

func NewService(repo *Repository, users UserLookup, recipients RecipientLookup, notifier Notifier, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:       repo,
		users:      users,
		recipients: recipients,
		notifier:   notifier,
		opts:       opts,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current date in the school's timezone.
func (s *Service) Today() string {
	return s.now().In(s.opts.Location).Format("2006-01-02")
}

// Scan is the outcome of one badge scan.
type Scan struct {
	Record       *Record        `json:"record"`
	Event        notify.Kind    `json:"event"`
	Notification *notify.Result `json:"notification,omitempty"`
}

// Resolve finds the user behind scanned QR data: a user id, a user code or
// a card payload.
func (s *Service) Resolve(qrData string) (*models.User, error) {
	qrData = strings.TrimSpace(qrData)
	if qrData == "" {
		return nil, ErrEmptyScan
	}

	user, err := s.users.GetByID(qrData)
	if err != nil || user != nil {
		return user, err
	}

	code := qrData
	if p := s.opts.PayloadPrefix; p != "" && len(qrData) > len(p) && strings.EqualFold(qrData[:len(p)], p) {
		code = qrData[len(p):]
	}
	user, err = s.users.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Record registers a check-in, or a check-out when the user already checked
// in today, and notifies a student's parents.
func (s *Service) Record(ctx context.Context, qrData, recordedBy string) (*Scan, error) {
	user, err := s.Resolve(qrData)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.opts.Location)
	date := now.Format("2006-01-02")
	ts := now.Unix()

	existing, err := s.repo.GetByUserAndDate(user.ID, date)
	if err != nil {
		return nil, err
	}

	scan := &Scan{}
	switch {
	case existing != nil && existing.CheckInTime == nil:
		status := s.arrivalStatus(now)
		if _, err := s.repo.MarkArrived(existing.ID, ts, status); err != nil {
			return nil, err
		}
		existing.CheckInTime = &ts
		existing.Status = status
		scan.Record, scan.Event = existing, notify.KindEntry

	case existing != nil:
		if existing.CheckOutTime != nil {
			return nil, ErrAlreadyCheckedOut
		}
		ok, err := s.repo.SetCheckOut(existing.ID, ts)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyCheckedOut
		}
		existing.CheckOutTime = &ts
		scan.Record, scan.Event = existing, notify.KindExit

	default:
		rec := &Record{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			UserName:    user.FullName,
			UserRole:    user.Role,
			CheckInTime: &ts,
			Date:        date,
			Status:      s.arrivalStatus(now),
			RecordedBy:  recordedBy,
			CreatedAt:   ts,
		}
		if err := s.repo.Create(rec); err != nil {
			return nil, err
		}
		scan.Record, scan.Event = rec, notify.KindEntry
	}

	metrics.AttendanceEvents.WithLabelValues(string(scan.Event)).Inc()
	log.Info().
		Str("user_id", user.ID).
		Str("event", string(scan.Event)).
		Str("status", scan.Record.Status).
		Msg("attendance recorded")

	if s.opts.Events != nil {
		s.opts.Events.Publish("attendance."+string(scan.Event), ScanEvent{
			RecordID: scan.Record.ID,
			UserID:   user.ID,
			UserName: user.FullName,
			UserRole: user.Role,
			Status:   scan.Record.Status,
			Date:     date,
			At:       ts,
		})
	}

	if user.Role == models.RoleStudent {
		scan.Notification = s.notifyParents(ctx, user, scan.Event, now)
	}
	return scan, nil
}

func (s *Service) arrivalStatus(now time.Time) string {
	sinceMidnight := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second
	if sinceMidnight >= s.opts.LateAfter {
		return StatusLate
	}
	return StatusPresent
}

func (s *Service) notifyParents(ctx context.Context, student *models.User, kind notify.Kind, at time.Time) *notify.Result {
	if s.notifier == nil || s.recipients == nil {
		return nil
	}
	emails, err := s.recipients.NotificationEmails(student.ID)
	if err != nil {
		log.Error().Err(err).Str("student_id", student.ID).Msg("failed to load parent contacts")
		return nil
	}
	if len(emails) == 0 {
		return nil
	}

	res := s.notifier.Notify(ctx, notify.Event{StudentName: student.FullName, Kind: kind, At: at}, emails)
	log.Info().
		Str("student_id", student.ID).
		Int("sent", len(res.Success)).
		Int("failed", len(res.Failed)).
		Msg("parents notified")
	return &res
}

func (s *Service) List(f Filter) ([]*Record, error) {
	return s.repo.List(f)
}

// Stats summarises a user's attendance. The date range applies only when
// both bounds are given.
func (s *Service) Stats(userID, start, end string) (*Stats, error) {
	if start == "" || end == "" {
		start, end = "", ""
	}
	records, err := s.repo.ListForUser(userID, start, end)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalDays: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			st.PresentDays++
		case StatusLate:
			st.PresentDays++
			st.LateDays++
		}
	}
	st.AbsentDays = st.TotalDays - st.PresentDays
	st.AttendanceRate = percent(st.PresentDays, st.TotalDays)
	return st, nil
}

func (s *Service) Dashboard() (*Dashboard, error) {
	today := s.Today()

	students, err := s.users.CountByRole(models.RoleStudent)
	if err != nil {
		return nil, err
	}
	teachers, err := s.users.CountByRole(models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	total, present, err := s.repo.CountByDate(today)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Date:            today,
		TotalStudents:   students,
		TotalTeachers:   teachers,
		TodayAttendance: total,
		TodayPresent:    present,
		AttendanceRate:  percent(present, students),
	}, nil
}

// SweepAbsences records every student without a record on date as absent.
func (s *Service) SweepAbsences(date string) (int, error) {
	n, err := s.repo.MarkAbsent(models.RoleStudent, date, s.now().Unix())
	if err != nil {
		return 0, err
	}
	log.Info().Str("date", date).Int("absent", n).Msg("absence sweep complete")
	return n, nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
