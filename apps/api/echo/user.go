package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/user"
)

type authApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		conf:     deps.Conf,
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/forgot-password` & `/resend-verification` per client IP
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.GET("/verify/:token", api.verifyEmail)
	ag.POST("/resend-verification", api.resendVerification)
	ag.POST("/forgot-password", api.forgotPassword)
	ag.POST("/reset-password/:token", api.resetPassword)

	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func (api *authApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{
		Message: "Registration successful. Please check your email to verify your account.",
		User:    usr,
	})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	if _, err := api.svc.VerifyEmail(ctx.Request().Context(), ctx.Param("token")); err != nil {
		return errors.Wrap(err, "verifying email")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Email verified successfully. You can now log in."})
}

func (api *authApi) resendVerification(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResendVerification(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "resending verification")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: "If an unverified account exists for this email, a new verification link has been sent.",
	})
}

func (api *authApi) forgotPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), ctx.Param("token"), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

type userApi struct {
	svc       *user.Service
	courseSvc *course.Service
	notifSvc  *notification.Service
	validate  *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:       deps.UserSvc,
		courseSvc: deps.CourseSvc,
		notifSvc:  deps.NotificationSvc,
		validate:  deps.Validate,
	}

	ug := g.Group("/users", jwt)
	ug.GET("/me", api.me)
	ug.PUT("/me", api.updateMe)
	ug.POST("/me/avatar", api.updateAvatar)
	ug.GET("/me/courses", api.myCourses)
	ug.GET("/me/contributions", api.contributions)
	ug.GET("/me/notifications", api.notifications)
	ug.GET("/:id", api.profile)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), uid, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, UserResponse{Message: "Profile updated successfully.", User: usr})
}

func (api *userApi) updateAvatar(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	ff, err := openFormFile(ctx, "avatar")
	if err != nil {
		return err
	}
	defer ff.Close()

	usr, err := api.svc.UpdateAvatar(ctx.Request().Context(), uid, user.File{
		Filename: ff.Filename,
		Size:     ff.Size,
		Content:  ff.File,
	})
	if err != nil {
		return errors.Wrap(err, "updating avatar")
	}
	return ctx.JSON(http.StatusOK, UserResponse{Message: "Avatar updated successfully.", User: usr})
}

func (api *userApi) myCourses(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.MyCourses(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "listing user courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *userApi) contributions(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	contribs, err := api.svc.Contributions(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "counting contributions")
	}
	return ctx.JSON(http.StatusOK, contribs)
}

func (api *userApi) notifications(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	list, err := api.notifSvc.List(ctx.Request().Context(), uid, queryInt(ctx, "limit"), queryInt(ctx, "offset"))
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *userApi) profile(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	profile, err := api.svc.GetProfile(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	UserResponse struct {
		Message string    `json:"message"`
		User    user.User `json:"user"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}
