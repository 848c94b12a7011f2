// Command client is a terminal feed reader. It logs in over the HTTP
// API, then holds a live connection and prints posts as they arrive,
// reconnecting automatically when the connection drops.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mmuslimabdulj/chirp/internal/domain"
	"github.com/mmuslimabdulj/chirp/internal/feedclient"
)

type app struct {
	baseURL string
	token   string

	mu   sync.Mutex
	feed []domain.Post
}

func (a *app) login(email, password string) error {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	resp, err := http.Post(a.baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var res struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&res)
		return fmt.Errorf("login failed: %s", res.Error)
	}

	var res struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}
	a.token = res.Token
	return nil
}

// refetch reloads the full feed and reconciles it with whatever was
// already received live, so a gap during a reconnect cannot lose posts.
func (a *app) refetch() error {
	req, err := http.NewRequest("GET", a.baseURL+"/api/tweets", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed fetch failed: %s", resp.Status)
	}

	var posts []domain.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	merged := posts
	for _, p := range a.feed {
		merged = feedclient.Merge(merged, p)
	}
	a.feed = merged
	return nil
}

func (a *app) addPost(p domain.Post) {
	a.mu.Lock()
	a.feed = feedclient.Merge(a.feed, p)
	a.mu.Unlock()
	fmt.Printf("@%s: %s\n", p.Author, p.Content)
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client -email you@example.com -password secret [-server http://localhost:8080]")
		os.Exit(2)
	}

	a := &app{baseURL: strings.TrimRight(*serverURL, "/")}
	if err := a.login(*email, *password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := a.refetch(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a.mu.Lock()
	fmt.Printf("loaded %d posts\n", len(a.feed))
	a.mu.Unlock()

	wsURL := "ws" + strings.TrimPrefix(a.baseURL, "http") + "/ws"
	mgr := feedclient.NewManager(feedclient.Config{
		URL: wsURL,
		Callbacks: feedclient.Callbacks{
			OnConnect: func(id domain.Identity) {
				fmt.Printf("connected as @%s\n", id.Username)
				// A reconnect may have missed posts; reload in the
				// background and let Merge drop the duplicates
				go func() {
					if err := a.refetch(); err != nil {
						fmt.Fprintln(os.Stderr, err)
					}
				}()
			},
			OnDisconnect: func() {
				fmt.Println("disconnected")
			},
			OnPost: a.addPost,
			OnError: func(message string) {
				fmt.Fprintln(os.Stderr, "error:", message)
			},
		},
	})
	mgr.SetToken(a.token)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mgr.SetToken("")
	mgr.Close()
}
