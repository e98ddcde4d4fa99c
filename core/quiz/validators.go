package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sonalink/sonalink/core"
)

var (
	questionTypeTag  = "questiontype"
	questionTypeText = "must be one of multiple_choice_single, multiple_choice_multiple, true_false or short_answer"

	optionsRequiredTag  = "optionsrequired"
	optionsRequiredText = "choice questions need at least 2 options"

	oneCorrectTag  = "onecorrect"
	oneCorrectText = "exactly one option must be correct"

	someCorrectTag  = "somecorrect"
	someCorrectText = "at least one option must be correct"

	noOptionsTag  = "nooptions"
	noOptionsText = "short answer questions cannot have options"
)

// InitValidators registers the quiz validation tags & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, optionsRequiredTag, optionsRequiredText)
	core.RegisterCustomTranslation(validate, translator, oneCorrectTag, oneCorrectText)
	core.RegisterCustomTranslation(validate, translator, someCorrectTag, someCorrectText)
	core.RegisterCustomTranslation(validate, translator, noOptionsTag, noOptionsText)
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	if qt, ok := fl.Field().Interface().(QuestionType); ok {
		return qt.Valid()
	}
	return QuestionType(fl.Field().String()).Valid()
}

// questionStructValidation checks the options of a NewQuestion against its type.
func questionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok || !nq.Type.Valid() {
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(nq.Options, "options", "Options", tag, "")
	}

	if !nq.Type.IsChoice() {
		if len(nq.Options) > 0 {
			reportErr(noOptionsTag)
		}
		return
	}
	if len(nq.Options) < 2 {
		reportErr(optionsRequiredTag)
		return
	}

	var correct int
	for _, opt := range nq.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	switch {
	case nq.Type == TypeMultiChoice && correct == 0:
		reportErr(someCorrectTag)
	case nq.Type != TypeMultiChoice && correct != 1:
		reportErr(oneCorrectTag)
	}
}
