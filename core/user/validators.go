package user

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sonalink/sonalink/core"
	appfs "github.com/sonalink/sonalink/fs"
)

var (
	campusEmailTag = "campusemail"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdNoSpaceTag = "pwdnospace"
	pwdNotAllNum  = "pwdnotallnum"
	pwdCplxTag    = "pwdcplx"
	pwdAttrSimTag = "pwdtoosim"
	pwdCommonTag  = "pwdnocommon"
	pwdMaxSim     = .7
	specialRegex  = regexp.MustCompile("[^A-Za-z0-9]")

	pwdTexts = map[string]string{
		pwdMinLenTag:  fmt.Sprintf("password must contain at least %d characters", pwdMinLen),
		pwdNoSpaceTag: "password must not contain whitespace",
		pwdNotAllNum:  "password cannot be entirely numeric",
		pwdCplxTag:    "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		pwdAttrSimTag: "password cannot be similar to your name or email",
		pwdCommonTag:  "password is too common",
	}

	commonPasswords = make([]string, 0, 128)
)

// LoadCommonPasswords reads the embedded list of passwords rejected by the password policy.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open("assets/common-passwords.txt")
	if err != nil {
		logger.Error(fmt.Sprintf("opening common passwords: %v", err), err)
		return
	}
	defer func() { _ = file.Close() }()

	pwds := make([]string, 0, cap(commonPasswords))
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := core.CleanString(scanner.Text(), true /* lower */); pwd != "" {
			pwds = append(pwds, pwd)
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("reading common passwords: %v", err), err)
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

// InitValidators registers the user validation tags & translations.
// Signup emails must belong to emailDomain.
func InitValidators(validate *validator.Validate, translator ut.Translator, emailDomain string) {
	suffix := "@" + strings.ToLower(emailDomain)
	_ = validate.RegisterValidation(campusEmailTag, func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(fl.Field().String()), suffix)
	})
	core.RegisterCustomTranslation(validate, translator, campusEmailTag, "Registration is only allowed with a "+suffix+" email address.")

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// userStructValidation applies the password policy to new users.
func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok && nu.Password != "" {
		if tag := checkPassword(nu.Password, nu.Name, nu.Email); tag != "" {
			sl.ReportError(nu.Password, "password", "Password", tag, "")
		}
	}
}

// passwordPolicyError validates pwd outside of a struct, for users that already exist.
func passwordPolicyError(pwd string, usr User) error {
	if tag := checkPassword(pwd, usr.Name, usr.Email); tag != "" {
		msg := pwdTexts[tag]
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "password", Error: msg})
	}
	return nil
}

// checkPassword applies the password policy and returns the tag of the first broken rule:
// - minLen: 8
// - no whitespace
// - not all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func checkPassword(pwd, name, email string) string {
	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return pwdNotAllNum
	}
	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		return pwdCplxTag
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	localPart := strings.SplitN(email, "@", 2)[0]
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, localPart) >= pwdMaxSim {
		return pwdAttrSimTag
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdCommonTag
	}
	return ""
}
