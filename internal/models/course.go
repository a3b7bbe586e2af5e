package models

// Course is one entry in a program's curriculum catalog.
//
// Requisites is the raw prerequisite expression as published in the
// catalog: course codes combined with the connectives "Y" (and) and
// "O" (or), optionally parenthesized, e.g. "MATE1105 Y (FISI1018 O FISI1028)".
// Parsing happens once at graph construction, not here.
type Course struct {
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	Credits    int    `json:"credits" yaml:"credits"`
	Level      int    `json:"level" yaml:"level"`
	Requisites string `json:"requisites,omitempty" yaml:"requisites"`
}

// Program is one curriculum catalog version for a degree program.
type Program struct {
	Code    string   `json:"code" yaml:"code"`
	Name    string   `json:"name" yaml:"name"`
	Catalog string   `json:"catalog" yaml:"catalog"` // catalog version token, e.g. "202410"
	Courses []Course `json:"courses" yaml:"courses"`
}

// TotalCredits sums the credit weight of every course in the catalog.
func (p *Program) TotalCredits() int {
	total := 0
	for _, c := range p.Courses {
		total += c.Credits
	}
	return total
}
