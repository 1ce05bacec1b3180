package domain

// Project is a work-check-type the user can check in against.
type Project struct {
	ID   string
	Name string
}
