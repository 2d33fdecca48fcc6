package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/smart-allotment-api/internal/allotment"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
)

// TimetableEntry is one weekly recurring slot.
type TimetableEntry struct {
	Room    string `yaml:"room"`
	Weekday string `yaml:"weekday"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Host    string `yaml:"host"`
	Role    string `yaml:"role"`
}

type timetableFile struct {
	Timetable []TimetableEntry `yaml:"timetable"`
}

type ledgerSeeder interface {
	Seed(ctx context.Context, bookings []models.Booking) (SeedReport, error)
	Len() int
}

// TimetableSeeder pre-populates the ledger from a weekly timetable before
// the API starts serving.
type TimetableSeeder struct {
	ledger ledgerSeeder
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewTimetableSeeder constructs a seeder. A nil loc means UTC.
func NewTimetableSeeder(ledger ledgerSeeder, loc *time.Location, logger *zap.Logger) *TimetableSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TimetableSeeder{ledger: ledger, logger: logger, loc: loc, now: time.Now}
}

// SeedFile loads path and commits weeks of occurrences starting at from
// (YYYY-MM-DD). An empty from means the Monday of the current week. A ledger
// that already holds bookings is left alone, so restarting against a
// persisted ledger never brings back cancelled timetable slots.
func (s *TimetableSeeder) SeedFile(ctx context.Context, path, from string, weeks int) (SeedReport, error) {
	if n := s.ledger.Len(); n > 0 {
		s.logger.Info("ledger already populated, skipping timetable seed", zap.String("file", path), zap.Int("bookings", n))
		return SeedReport{Skipped: true}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return SeedReport{}, fmt.Errorf("open timetable: %w", err)
	}
	defer f.Close()

	entries, err := ParseTimetable(f)
	if err != nil {
		return SeedReport{}, err
	}
	start, err := s.rangeStart(from)
	if err != nil {
		return SeedReport{}, err
	}
	bookings, err := ExpandTimetable(entries, start, weeks, s.loc)
	if err != nil {
		return SeedReport{}, err
	}

	report, err := s.ledger.Seed(ctx, bookings)
	if err != nil {
		return report, err
	}
	s.logger.Info("timetable seeded",
		zap.String("file", path),
		zap.String("from", start.Format(dateLayout)),
		zap.Int("weeks", weeks),
		zap.Int("committed", report.Committed),
		zap.Int("conflicts", report.Conflicts))
	return report, nil
}

// ParseTimetable decodes the YAML document.
func ParseTimetable(r io.Reader) ([]TimetableEntry, error) {
	var doc timetableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid timetable file")
	}
	return doc.Timetable, nil
}

const dateLayout = "2006-01-02"

// ExpandTimetable turns weekly entries into dated bookings covering
// [from, from+weeks*7 days), ordered by day then file order.
func ExpandTimetable(entries []TimetableEntry, from time.Time, weeks int, loc *time.Location) ([]models.Booking, error) {
	if weeks <= 0 {
		return nil, nil
	}
	days := make([]time.Weekday, len(entries))
	roles := make([]models.Role, len(entries))
	for i, e := range entries {
		day, err := parseWeekday(e.Weekday)
		if err != nil {
			return nil, timetableError(i, err.Error())
		}
		days[i] = day
		roles[i] = models.RoleFaculty
		if strings.TrimSpace(e.Role) != "" {
			roles[i] = models.ParseRole(e.Role)
		}
		if !roles[i].CanMutateLedger() {
			return nil, timetableError(i, fmt.Sprintf("role %q cannot hold bookings", e.Role))
		}
		if strings.TrimSpace(e.Room) == "" || strings.TrimSpace(e.Host) == "" {
			return nil, timetableError(i, "room and host are required")
		}
	}

	var bookings []models.Booking
	for d := 0; d < weeks*7; d++ {
		date := from.AddDate(0, 0, d)
		dateStr := date.Format(dateLayout)
		for i, e := range entries {
			if days[i] != date.Weekday() {
				continue
			}
			iv, err := allotment.ParseInterval(dateStr, e.Start, e.End, loc)
			if err != nil {
				return nil, timetableError(i, "invalid start or end time")
			}
			if !iv.Valid() {
				return nil, timetableError(i, "start must be before end")
			}
			bookings = append(bookings, models.Booking{
				RoomID:    strings.TrimSpace(e.Room),
				Date:      dateStr,
				StartTime: strings.TrimSpace(e.Start),
				EndTime:   strings.TrimSpace(e.End),
				StartTS:   int64(iv.Start),
				EndTS:     int64(iv.End),
				UserRole:  roles[i],
				UserName:  strings.TrimSpace(e.Host),
			})
		}
	}
	return bookings, nil
}

func (s *TimetableSeeder) rangeStart(from string) (time.Time, error) {
	if strings.TrimSpace(from) != "" {
		t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(from), s.loc)
		if err != nil {
			return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid seed start date")
		}
		return t, nil
	}
	now := s.now().In(s.loc)
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, s.loc), nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", raw)
	}
	return day, nil
}

func timetableError(index int, msg string) error {
	return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("timetable entry %d: %s", index+1, msg))
}
