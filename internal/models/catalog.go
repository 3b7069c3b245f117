package models

// Department is read-only reference data from the catalog.
type Department struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// Doctor is read-only reference data from the catalog.
type Doctor struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Title        string `db:"title" json:"title"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Active       bool   `db:"active" json:"active"`
}

// Condition is a disease or visit reason a patient books for.
type Condition struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	DepartmentID string `db:"department_id" json:"department_id"`
}

// Patient is read-only reference data from the catalog.
type Patient struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Catalog is a bulk snapshot of reference data, used to seed the memory store.
type Catalog struct {
	Departments []Department `json:"departments"`
	Doctors     []Doctor     `json:"doctors"`
	Conditions  []Condition  `json:"conditions"`
	Patients    []Patient    `json:"patients"`
	// Capabilities maps doctor id to the condition ids the doctor can treat.
	Capabilities map[string][]string `json:"capabilities"`
}
