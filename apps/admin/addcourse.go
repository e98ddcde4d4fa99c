package main

import (
	"context"
	"fmt"

	"github.com/sonalink/sonalink/core/course"
)

func (cli *commandLine) addCourse(code, name, description string) error {
	nc := course.NewCourse{Code: code, Name: name, Description: description}
	if err := nc.Validate(cli.validate); err != nil {
		return err
	}
	c, err := cli.courseSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("Course %d (%s) created.\n", c.ID, c.Code)
	return nil
}
