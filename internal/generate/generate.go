// Package generate produces synthetic student records for load and demo
// traffic against the event bus.
package generate

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/alfredjeanlab/eventrelay/internal/idgen"
	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// DateLayout is the wire format of Student.DateOfBirth.
const DateLayout = "2006-01-02"

var (
	minBirth = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxBirth = time.Date(2009, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Generator builds random student records.
type Generator struct {
	faker *gofakeit.Faker
}

// New returns a Generator. A zero seed draws a random one.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Student returns one synthetic record with a six-digit identifier, a
// fake name and a birth date between 1990 and 2009.
func (g *Generator) Student() (model.Student, error) {
	id, err := idgen.StudentID()
	if err != nil {
		return model.Student{}, fmt.Errorf("generate student: %w", err)
	}
	return model.Student{
		StudentID:   id,
		Firstname:   g.faker.FirstName(),
		Lastname:    g.faker.LastName(),
		DateOfBirth: g.faker.DateRange(minBirth, maxBirth).Format(DateLayout),
	}, nil
}

// Students returns n records shuffled so that their order carries no
// chronological meaning.
func (g *Generator) Students(n int) ([]model.Student, error) {
	if n < 0 {
		return nil, fmt.Errorf("generate: negative count %d", n)
	}
	out := make([]model.Student, 0, n)
	for i := 0; i < n; i++ {
		s, err := g.Student()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	g.faker.ShuffleAnySlice(out)
	return out, nil
}
