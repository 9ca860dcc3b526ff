package college

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedData struct {
	Departments []struct {
		Code          string `yaml:"dept_code"`
		Name          string `yaml:"dept_name"`
		HOD           string `yaml:"hod_name"`
		TotalFaculty  int    `yaml:"total_faculty"`
		TotalStudents int    `yaml:"total_students"`
		Building      string `yaml:"building"`
		Floor         string `yaml:"floor"`
	} `yaml:"departments"`

	Faculty []struct {
		ID             string `yaml:"faculty_id"`
		Name           string `yaml:"name"`
		Email          string `yaml:"email"`
		Department     string `yaml:"department"`
		Designation    string `yaml:"designation"`
		Specialization string `yaml:"specialization"`
		Phone          string `yaml:"phone"`
	} `yaml:"faculty"`

	Students []struct {
		ID         string  `yaml:"student_id"`
		Name       string  `yaml:"name"`
		Email      string  `yaml:"email"`
		Department string  `yaml:"department"`
		Year       int     `yaml:"year"`
		Section    string  `yaml:"section"`
		CGPA       float64 `yaml:"cgpa"`
		Phone      string  `yaml:"phone"`
		Enrolled   string  `yaml:"enrollment_date"`
	} `yaml:"students"`

	Courses []struct {
		Code        string `yaml:"course_code"`
		Name        string `yaml:"course_name"`
		Department  string `yaml:"department"`
		Credits     int    `yaml:"credits"`
		Semester    int    `yaml:"semester"`
		FacultyID   string `yaml:"faculty_id"`
		Description string `yaml:"description"`
	} `yaml:"courses"`

	Events []struct {
		Name        string `yaml:"event_name"`
		Description string `yaml:"description"`
		InDays      int    `yaml:"in_days"`
		Venue       string `yaml:"venue"`
		Organizer   string `yaml:"organizer"`
		Type        string `yaml:"event_type"`
	} `yaml:"events"`

	Admissions []struct {
		Program        string  `yaml:"program"`
		Department     string  `yaml:"department"`
		TotalSeats     int     `yaml:"total_seats"`
		AvailableSeats int     `yaml:"available_seats"`
		ClosesInDays   int     `yaml:"closes_in_days"`
		Eligibility    string  `yaml:"eligibility"`
		FeePerSemester float64 `yaml:"fee_per_semester"`
	} `yaml:"admissions"`

	Facilities []struct {
		Name        string `yaml:"facility_name"`
		Location    string `yaml:"location"`
		Timings     string `yaml:"timings"`
		Contact     string `yaml:"contact"`
		Description string `yaml:"description"`
	} `yaml:"facilities"`
}

func loadSeedData() (*seedData, error) {
	var data seedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return nil, fmt.Errorf("parsing seed data: %w", err)
	}
	return &data, nil
}

const dateLayout = "2006-01-02"

// insertSeed writes every seed row inside tx. Relative dates are resolved against today.
func insertSeed(ctx context.Context, tx *sql.Tx, data *seedData, today time.Time) error {
	day := func(offset int) string {
		return today.AddDate(0, 0, offset).Format(dateLayout)
	}

	for _, d := range data.Departments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO departments (dept_code, dept_name, hod_name, total_faculty, total_students, building, floor)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Code, d.Name, d.HOD, d.TotalFaculty, d.TotalStudents, d.Building, d.Floor,
		); err != nil {
			return fmt.Errorf("departments: %w", err)
		}
	}

	for _, f := range data.Faculty {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faculty (faculty_id, name, email, department, designation, specialization, phone)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Email, f.Department, f.Designation, f.Specialization, f.Phone,
		); err != nil {
			return fmt.Errorf("faculty: %w", err)
		}
	}

	for _, s := range data.Students {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO students (student_id, name, email, department, year, section, cgpa, phone, enrollment_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.Email, s.Department, s.Year, s.Section, s.CGPA, s.Phone, s.Enrolled,
		); err != nil {
			return fmt.Errorf("students: %w", err)
		}
	}

	for _, c := range data.Courses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO courses (course_code, course_name, department, credits, semester, faculty_id, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Code, c.Name, c.Department, c.Credits, c.Semester, c.FacultyID, c.Description,
		); err != nil {
			return fmt.Errorf("courses: %w", err)
		}
	}

	for _, e := range data.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (event_name, description, event_date, venue, organizer, event_type)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.Name, e.Description, day(e.InDays), e.Venue, e.Organizer, e.Type,
		); err != nil {
			return fmt.Errorf("events: %w", err)
		}
	}

	for _, a := range data.Admissions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO admissions (program, department, total_seats, available_seats, last_date, eligibility, fee_per_semester)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.Program, a.Department, a.TotalSeats, a.AvailableSeats, day(a.ClosesInDays), a.Eligibility, a.FeePerSemester,
		); err != nil {
			return fmt.Errorf("admissions: %w", err)
		}
	}

	for _, f := range data.Facilities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO facilities (facility_name, location, timings, contact, description)
			 VALUES (?, ?, ?, ?, ?)`,
			f.Name, f.Location, f.Timings, f.Contact, f.Description,
		); err != nil {
			return fmt.Errorf("facilities: %w", err)
		}
	}

	return nil
}
