package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validated struct {
	Username string `json:"username" validate:"omitempty,alphanum_"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Matric   string `json:"student_id" validate:"omitempty,matricule"`
	Level    string `json:"level" validate:"omitempty,edulevel"`
	Year     string `json:"academic_year" validate:"omitempty,acadyear"`
	Start    string `json:"start_time" validate:"omitempty,hhmm"`
	Currency string `json:"currency" validate:"omitempty,currency"`
	Gender   string `json:"gender" validate:"omitempty,oneof=M F"`
	Born     Date   `json:"date_of_birth" validate:"required"`
}

func TestInitValidators(t *testing.T) {
	translator := NewTranslator()
	validate := validator.New()
	InitValidators(validate, translator)

	valid := validated{Born: NewDate(2015, 1, 1)}

	tests := []struct {
		name      string
		mutate    func(v *validated)
		wantField string
		wantMsg   string
	}{
		{name: "valid"},
		{name: "all set", mutate: func(v *validated) {
			*v = validated{
				Username: "jean_b", Phone: "+243 812 345 678", Matric: "ELV-2025/001", Level: LevelPrimaire,
				Year: "2025-2026", Start: "07:30", Currency: "CDF", Gender: "F", Born: NewDate(2015, 1, 1),
			}
		}},
		{name: "username", mutate: func(v *validated) { v.Username = "jean-b" }, wantField: "username", wantMsg: alphaNumUnderText},
		{name: "phone", mutate: func(v *validated) { v.Phone = "12ab" }, wantField: "phone", wantMsg: "phone must be a valid phone number"},
		{name: "matricule", mutate: func(v *validated) { v.Matric = "elv" }, wantField: "student_id"},
		{name: "level", mutate: func(v *validated) { v.Level = "UNIVERSITE" }, wantField: "level", wantMsg: "level must be one of MATERNELLE, PRIMAIRE, SECONDAIRE"},
		{name: "academic year gap", mutate: func(v *validated) { v.Year = "2025-2027" }, wantField: "academic_year"},
		{name: "academic year format", mutate: func(v *validated) { v.Year = "25-26" }, wantField: "academic_year"},
		{name: "time", mutate: func(v *validated) { v.Start = "24:00" }, wantField: "start_time"},
		{name: "currency", mutate: func(v *validated) { v.Currency = "usd" }, wantField: "currency"},
		{name: "oneof", mutate: func(v *validated) { v.Gender = "X" }, wantField: "gender", wantMsg: "gender must be one of [M, F]"},
		{name: "zero date", mutate: func(v *validated) { v.Born = Date{} }, wantField: "date_of_birth", wantMsg: requiredText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			if tt.mutate != nil {
				tt.mutate(&v)
			}
			err := validate.Struct(v)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, verrs[0].Translate(translator))
			}
		})
	}
}

func TestOrderingFields_Clean(t *testing.T) {
	of := OrderingFields{"name": "last_name", "created_at": "created_at"}
	cleaned := of.Clean([]DBOrdering{
		{Field: "NAME", Ascending: true},
		{Field: "password"},
		{Field: "created_at"},
	})
	assert.Equal(t, []DBOrdering{{Field: "last_name", Ascending: true}, {Field: "created_at"}}, cleaned)
	assert.Equal(t, " ORDER BY last_name ASC, created_at DESC", OrderByClause(cleaned, "id"))
	assert.Equal(t, " ORDER BY id", OrderByClause(nil, "id"))
}

func TestErrors(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("nope")))
	assert.True(t, IsConflict(NewConflictError("taken", "email")))
	assert.True(t, IsValidation(NewFieldError("email", "invalid")))
	assert.False(t, IsValidation(NewNotFoundError("nope")))
	assert.Equal(t, "email: invalid", ValidationError{Fields: []FieldError{{Field: "email", Error: "invalid"}}}.Error())
	assert.True(t, IsShutdown(NewShutdownError("bye")))
}
