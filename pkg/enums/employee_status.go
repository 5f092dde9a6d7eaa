package enums

import "fmt"

type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusDisabled EmployeeStatus = "disabled"
)

func (s EmployeeStatus) String() string {
	return string(s)
}

func (s EmployeeStatus) IsValid() bool {
	return s == EmployeeStatusActive || s == EmployeeStatusDisabled
}

func ParseEmployeeStatus(value string) (EmployeeStatus, error) {
	status := EmployeeStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid employee status %q", value)
	}
	return status, nil
}
