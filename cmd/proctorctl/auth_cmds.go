package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/exam-proctor/internal/client"
	"github.com/gokatarajesh/exam-proctor/internal/forms"
)

func newSignupCmd(g *globalOptions) *cobra.Command {
	in := client.SignupInput{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if errs := forms.Validate(forms.Values{
				forms.FieldFirstName: in.FirstName,
				forms.FieldLastName:  in.LastName,
				forms.FieldEmail:     in.Email,
				forms.FieldPassword:  in.Password,
			}); len(errs) > 0 {
				for _, field := range errs.Fields() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", field, errs[field])
				}
				return errors.New("invalid signup form")
			}

			res, err := g.client(cmd).Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (user %s)\n", res.Message, res.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	return cmd
}

func newLoginCmd(g *globalOptions) *cobra.Command {
	var email, password, code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the issued tokens",
		Long:  "Sign in with email and password. Pass --code to complete a two-factor challenge.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client(cmd)
			var (
				res *client.LoginResult
				err error
			)
			if code != "" {
				res, err = c.VerifyTwoFactor(cmd.Context(), email, code)
			} else {
				res, err = c.Login(cmd.Context(), email, password)
			}
			if err != nil {
				return err
			}
			if res.TwoFactorRequired {
				fmt.Fprintln(cmd.OutOrStdout(), "A sign-in code was sent. Run login again with --code.")
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&code, "code", "", "two-factor code")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
