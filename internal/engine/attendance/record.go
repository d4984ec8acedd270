package attendance

import "errors"

const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrEmptyScan         = errors.New("qr data is required")
)

type Record struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	UserRole     string `json:"user_role"`
	CheckInTime  *int64 `json:"check_in_time,omitempty"`
	CheckOutTime *int64 `json:"check_out_time,omitempty"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	RecordedBy   string `json:"recorded_by"`
	CreatedAt    int64  `json:"created_at"`
}

type Filter struct {
	UserID string
	Date   string
	Role   string
}

type Stats struct {
	TotalDays      int     `json:"total_days"`
	PresentDays    int     `json:"present_days"`
	AbsentDays     int     `json:"absent_days"`
	LateDays       int     `json:"late_days"`
	AttendanceRate float64 `json:"attendance_rate"`
}

type Dashboard struct {
	Date            string  `json:"date"`
	TotalStudents   int     `json:"total_students"`
	TotalTeachers   int     `json:"total_teachers"`
	TodayAttendance int     `json:"today_attendance"`
	TodayPresent    int     `json:"today_present"`
	AttendanceRate  float64 `json:"attendance_rate"`
}
