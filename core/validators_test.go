package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedValidators(t *testing.T) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)

	type form struct {
		Code  string `json:"code" validate:"alphanum_"`
		Title string `json:"title" validate:"notblank"`
	}

	tests := []struct {
		name    string
		in      form
		wantErr map[string]string
	}{
		{name: "valid", in: form{Code: "CS_101", Title: "Limits"}},
		{
			name:    "space in code",
			in:      form{Code: "CS 101", Title: "Limits"},
			wantErr: map[string]string{"code": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name:    "tab in code",
			in:      form{Code: "CS\t101", Title: "Limits"},
			wantErr: map[string]string{"code": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name:    "punctuation in code",
			in:      form{Code: "CS-101", Title: "Limits"},
			wantErr: map[string]string{"code": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name:    "blank title",
			in:      form{Code: "CS101", Title: " \t "},
			wantErr: map[string]string{"title": "this field cannot be blank"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantErr, TranslateErrors(vErrs, translator))
		})
	}
}
