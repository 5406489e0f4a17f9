package admincli

import (
	"fmt"
	"os"

	"github.com/ccojocar/zxcvbn-go"
	"golang.org/x/term"
)

// minPasswordScore is the zxcvbn strength score (0-4) a new password must
// meet or exceed.
const minPasswordScore = 3

// promptNewPassword reads a password twice (non-echoing), confirms the two
// entries match, and rejects anything scoring below minPasswordScore,
// re-prompting until an acceptable password is entered. username is passed
// to zxcvbn as a user input so a password built from it scores lower.
func promptNewPassword(username string) (string, error) {
	for {
		fmt.Print("Password: ")
		password, err := readPassword()
		if err != nil {
			return "", err
		}

		fmt.Print("Confirm password: ")
		confirm, err := readPassword()
		if err != nil {
			return "", err
		}

		if password != confirm {
			fmt.Println("passwords do not match, try again")
			continue
		}

		result := zxcvbn.PasswordStrength(password, []string{username})
		if result.Score < minPasswordScore {
			fmt.Printf("password too weak (score %d/4, need %d/4), try again\n", result.Score, minPasswordScore)
			continue
		}

		return password, nil
	}
}

// readPassword reads a line from stdin without echoing it, then prints a
// newline (the terminal doesn't echo the user's Enter keypress either).
func readPassword() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
