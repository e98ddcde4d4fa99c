package main

import (
	"context"
	"fmt"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
)

// addUser creates a verified user. The campus email domain is not enforced.
func (cli *commandLine) addUser(email, name, pwd string) error {
	nu := user.NewUser{
		Name:     core.CleanString(name),
		Email:    core.CleanString(email, true /* lower */),
		Password: pwd,
	}
	if err := cli.validate.Var(nu.Email, "required,email"); err != nil {
		return fmt.Errorf("invalid email %q", nu.Email)
	}
	if nu.Name == "" {
		return fmt.Errorf("name is required")
	}

	usr, err := cli.usrSvc.CreateVerified(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("User %d <%s> created.\n", usr.ID, usr.Email)
	return nil
}
