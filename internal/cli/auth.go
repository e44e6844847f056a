package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/browser"
	"github.com/tessro/muffle/internal/wizard"
)

var logoutYes bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Spotify authentication",
	Long:  `Commands for managing Spotify OAuth authentication.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Spotify",
	Long:  `Opens a browser to authenticate with Spotify using OAuth PKCE flow.`,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored Spotify credentials",
	Long:  `Removes the stored Spotify session from the local machine.`,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  `Shows the current Spotify authentication status.`,
	RunE:  runAuthStatus,
}

func init() {
	authLogoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "skip confirmation")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Opening browser for Spotify authentication...")
	user, err := a.Login(cmd.Context(), app.LoginHooks{
		Open:   browser.Open,
		Notify: func(msg string) { fmt.Println(msg) },
	})
	if err != nil {
		return err
	}

	if user == nil {
		fmt.Println("Authentication successful! Session stored.")
		return nil
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status":       "authenticated",
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"email":        user.Email,
			"product":      user.Product,
		})
	} else {
		fmt.Printf("Successfully authenticated as %s (%s)\n", user.DisplayName, user.Email)
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Guardian.Session() == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "not_authenticated"})
		} else {
			fmt.Println("Not authenticated with Spotify.")
		}
		return nil
	}

	if !logoutYes && !JSONOutput() && wizard.IsTerminal() {
		confirmed := false
		err := huh.NewConfirm().
			Title("Log out of Spotify?").
			Description("The stored session will be deleted.").
			Value(&confirmed).
			Run()
		if err != nil || !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	a.Logout()

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "logged_out"})
	} else {
		fmt.Println("Logged out of Spotify.")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.Guardian.Session()
	if session == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"authenticated": false,
				"message":       a.Guardian.LastError(),
			})
		} else {
			fmt.Println("Not authenticated with Spotify.")
			fmt.Println("Run 'muffle auth login' to authenticate.")
		}
		return nil
	}

	user, err := a.Client.GetCurrentUser(cmd.Context())
	// Refreshing may have moved the expiry.
	if s := a.Guardian.Session(); s != nil {
		session = s
	}
	if err != nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"authenticated": true,
				"expires_at":    session.ExpiresAt,
				"error":         err.Error(),
			})
		} else {
			fmt.Printf("Session may be expired or invalid: %v\n", err)
			fmt.Println("Run 'muffle auth login' to re-authenticate.")
		}
		return nil
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"authenticated": true,
			"user_id":       user.ID,
			"display_name":  user.DisplayName,
			"email":         user.Email,
			"product":       user.Product,
			"expires_at":    session.ExpiresAt,
		})
		return nil
	}

	fmt.Printf("Authenticated as: %s (%s)\n", user.DisplayName, user.Email)
	fmt.Printf("Account type: %s\n", user.Product)
	fmt.Printf("Token expires: %s (%s)\n", humanize.Time(session.ExpiresAt), session.ExpiresAt.Format(time.RFC3339))
	return nil
}
