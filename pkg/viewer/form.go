package viewer

import (
	"github.com/charmbracelet/huh"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/validate"
)

// ColumnForm holds the add-column form and its bound values.
type ColumnForm struct {
	Form *huh.Form
	Name string
	Type string
}

// NewColumnForm builds the form with the text type preselected.
func NewColumnForm(width int) *ColumnForm {
	f := &ColumnForm{Type: string(models.ColumnText)}
	f.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Column name").
				Placeholder("e.g. Status").
				Value(&f.Name).
				Validate(validate.Required("name", "Column name is required")),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Text", string(models.ColumnText)),
					huh.NewOption("Date", string(models.ColumnDate)),
				).
				Value(&f.Type),
		).Title("Add Column"),
	).WithShowHelp(true)
	if width > 0 {
		f.Form.WithWidth(formWidth(width))
	}
	return f
}

// Spec validates the bound values and returns the request body.
func (f *ColumnForm) Spec() (apiclient.ColumnSpec, error) {
	in := validate.Column{Name: f.Name, Type: f.Type}
	if err := in.Validate(); err != nil {
		return apiclient.ColumnSpec{}, err
	}
	return apiclient.ColumnSpec{Name: f.Name, Type: models.ColumnType(f.Type)}, nil
}

func formWidth(termWidth int) int {
	w := termWidth - 4
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}
