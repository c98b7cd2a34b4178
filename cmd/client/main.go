package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

// CLI runs a create, read, update, delete round trip against a running contacts service and prints
// the status and duration of every request.
type CLI struct {
	URL        string `help:"Base URL of the contacts API." default:"http://localhost:8080/api"`
	Token      string `help:"Bearer token of the user." env:"CONTACTS_TOKEN" required:""`
	MaxRetries int    `help:"How often a rate limited request is retried." default:"3"`
}

// Usage example on the command line:
// > CONTACTS_TOKEN=$(go run ../migration seed-user dirk@example.com | tail -1) go run main.go
func main() {
	var cli CLI
	kctx := kong.Parse(&cli, kong.Name("client"), kong.Description("Smoke test for the contacts API."))
	kctx.FatalIfErrorf(cli.Run())
}

func (cli *CLI) Run() error {
	fmt.Println()
	fmt.Println("  Method  Status  Millis  Path")
	fmt.Println("--------------------------------------------------")

	body, _ := json.Marshal(api.ContactBase{
		FirstName: "Marcus",
		LastName:  "Antonius",
		Email:     "marcus@example.com",
		PhoneNum:  "+39 999 777 555",
		Birthday:  &api.Date{Time: time.Now().AddDate(-40, 0, 3)},
	})
	var created api.Contact
	if err := cli.expect(http.MethodPost, "/contacts/", body, http.StatusOK, &created); err != nil {
		return err
	}
	contactPath := "/contacts/" + strconv.FormatInt(created.Id, 10)

	var contacts []api.Contact
	if err := cli.expect(http.MethodGet, "/contacts/", nil, http.StatusOK, &contacts); err != nil {
		return err
	}

	update, _ := json.Marshal(api.ContactUpdate{Email: "antonius@example.com", PhoneNum: "+39 111"})
	if err := cli.expect(http.MethodPatch, contactPath, update, http.StatusOK, nil); err != nil {
		return err
	}
	var fetched api.Contact
	if err := cli.expect(http.MethodGet, contactPath, nil, http.StatusOK, &fetched); err != nil {
		return err
	}
	if fetched.Email != "antonius@example.com" {
		return fmt.Errorf("update was not stored, email is %q", fetched.Email)
	}

	var birthdays []api.Contact
	if err := cli.expect(http.MethodGet, "/contacts/birthdays/", nil, http.StatusOK, &birthdays); err != nil {
		return err
	}
	var found []api.Contact
	if err := cli.expect(http.MethodGet, "/contacts/search/?query="+url.QueryEscape("antonius"), nil, http.StatusOK, &found); err != nil {
		return err
	}

	if err := cli.expect(http.MethodDelete, contactPath, nil, http.StatusOK, nil); err != nil {
		return err
	}
	if err := cli.expect(http.MethodGet, contactPath, nil, http.StatusNotFound, nil); err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("%d contacts listed, %d upcoming birthdays, %d search results\n", len(contacts), len(birthdays), len(found))
	return nil
}

// expect sends the request, checks the status code and decodes the response into out if it is not
// nil.
func (cli *CLI) expect(method string, path string, body []byte, status int, out interface{}) error {
	code, resBody, err := cli.sendRequest(method, path, body)
	if err != nil {
		return err
	}
	if code != status {
		return fmt.Errorf("%s %s: expected status %d, got %d: %s", method, path, status, code, resBody)
	}
	if out != nil {
		if err := json.Unmarshal(resBody, out); err != nil {
			return fmt.Errorf("could not unmarshal JSON: %w", err)
		}
	}
	return nil
}

// sendRequest executes one request. Responses with status 429 are retried after the time the
// server asks for.
func (cli *CLI) sendRequest(method string, path string, body []byte) (int, []byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequest(method, cli.URL+path, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("could not create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cli.Token)
		req.Header.Set("Content-Type", "application/json")
		before := time.Now()
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("error making http request: %w", err)
		}
		resBody, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("could not read response body: %w", err)
		}
		fmt.Printf("%8s%8d%8d  %s\n", method, res.StatusCode, time.Since(before).Milliseconds(), path)
		if res.StatusCode != http.StatusTooManyRequests || attempt >= cli.MaxRetries {
			return res.StatusCode, resBody, nil
		}
		wait, err := strconv.Atoi(res.Header.Get("Retry-After"))
		if err != nil || wait < 1 {
			wait = 1
		}
		time.Sleep(time.Duration(wait) * time.Second)
	}
}
