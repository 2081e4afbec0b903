package domain

// DefaultDepartments seeds a fresh database; admins manage the list
// afterwards.
var DefaultDepartments = []string{
	"Rectorate",
	"Academic Affairs",
	"Research",
	"Marketing",
	"Media Center",
	"Student Housing",
	"IT Department",
	"Human Resources",
	"Accounting",
	"International Students",
	"Other",
}

// DepartmentStat is an aggregate row for the admin statistics view.
type DepartmentStat struct {
	Department string
	EventCount int
}
