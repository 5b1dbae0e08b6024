package models

// StudentImportColumns are the spreadsheet headers a student batch must carry.
var StudentImportColumns = []string{"external_code", "name", "email", "group_id"}

// StudentImportRow is one parsed spreadsheet row. Row is the 1-indexed sheet
// row (the header occupies row 1, so data rows start at 2).
type StudentImportRow struct {
	Row             int     `json:"row"`
	ExternalCode    string  `json:"external_code"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	GroupID         string  `json:"group_id"`
	DisciplineScore float64 `json:"discipline_score"`
}

// Student converts the row into a candidate record.
func (r StudentImportRow) Student() Student {
	return Student{
		ExternalCode:    r.ExternalCode,
		Name:            r.Name,
		Email:           r.Email,
		GroupID:         r.GroupID,
		DisciplineScore: r.DisciplineScore,
	}
}
