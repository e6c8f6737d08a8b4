package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/dom/hero-arena/internal/domain"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "cards":
		cardsCmd(args)
	case "arrive":
		arriveCmd(apiURL, args)
	case "leaderboard":
		leaderboardCmd(apiURL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Arena Simulator - Development tool for driving hero battles

USAGE:
  simulator <command> [options]

COMMANDS:
  cards        Run an in-memory card contract the arena can query
  arrive       Mint heroes on the card contract and send them to the arena
  leaderboard  Print the arena leaderboards and usage
  help         Show this help message

ENVIRONMENT:
  API_URL              Backend API URL (default: http://localhost:8080)
  CARD_SERVICE_TOKEN   Service token issued to the card contract by the arena admin

EXAMPLES:
  # Serve a card contract on :9090 (start the arena with CARD_CONTRACT_URL=http://localhost:9090)
  simulator cards --addr=:9090

  # Send 9 heroes from 9 new players, resolving three battles
  simulator arrive --count=9

  # Leave one slot open so you can send the third hero yourself
  simulator arrive --count=2`)
}

func cardsCmd(args []string) {
	fs := flag.NewFlagSet("cards", flag.ExitOnError)
	addr := fs.String("addr", ":9090", "Listen address")
	fs.Parse(args)

	contract := NewCardContract()
	log.Printf("Card contract listening on %s", *addr)
	if err := http.ListenAndServe(*addr, contract.Router()); err != nil {
		log.Fatalf("card contract stopped: %v", err)
	}
}

func arriveCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("arrive", flag.ExitOnError)
	cardsURL := fs.String("cards", "http://localhost:9090", "Card contract URL")
	count := fs.Int("count", 3, "Number of heroes to send")
	serviceToken := fs.String("token", os.Getenv("CARD_SERVICE_TOKEN"), "Card contract service token")
	fs.Parse(args)

	if *serviceToken == "" {
		fmt.Println("Error: --token or CARD_SERVICE_TOKEN is required")
		fmt.Println("\nIssue one with POST /api/v1/admin/service-tokens as the arena admin.")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	fmt.Printf("Sending %d heroes:\n", *count)

	for i := 0; i < *count; i++ {
		user, _, err := client.RegisterUser(fmt.Sprintf("Player%d", i+1))
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to create user: %v\n", i+1, *count, err)
			os.Exit(1)
		}

		skills := randomSkills()
		name := fmt.Sprintf("Hero of %s", user.DisplayName)
		tokenID, err := mint(httpClient, *cardsURL, user.ID, name, skills)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to mint: %v\n", i+1, *count, err)
			os.Exit(1)
		}

		result, err := client.Receive(*serviceToken, user.ID, tokenID, fmt.Sprintf("%s-%d", tokenID, time.Now().UnixNano()))
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to send: %v\n", i+1, *count, err)
			os.Exit(1)
		}

		fmt.Printf("  [%d/%d] %s entered with skills %v", i+1, *count, name, skills)
		if result.BattleNumber != nil {
			fmt.Printf(" -> battle %d resolved", *result.BattleNumber)
		}
		fmt.Println()
	}

	fmt.Println()
	leaderboardCmd(apiURL)
}

func leaderboardCmd(apiURL string) {
	client := NewAPIClient(apiURL)

	boards, err := client.Leaderboards()
	if err != nil {
		fmt.Printf("Failed to get leaderboards: %v\n", err)
		os.Exit(1)
	}
	usage, err := client.Usage()
	if err != nil {
		fmt.Printf("Failed to get usage: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=========================================")
	fmt.Printf("  %d players, %d battles (%d before migration)\n", usage.PlayerCount, usage.ArenaBattleCount, usage.PreviousArenaBattles)
	fmt.Println("=========================================")
	printBoard("All time", boards.AllTime)
	printBoard(fmt.Sprintf("Tournament since %s", time.Unix(boards.TournamentStarted, 0).Format(time.RFC3339)), boards.Tournament)
}

func printBoard(title string, entries []LeaderboardEntry) {
	fmt.Println()
	fmt.Println(title)
	for i, e := range entries {
		fmt.Printf("  %2d. %-36s %5d  (%dW %dT %dL)\n", i+1, e.PlayerID, e.Score, e.Wins, e.Ties, e.Losses)
	}
}

func randomSkills() domain.Skills {
	var s domain.Skills
	for i := range s {
		s[i] = uint8(domain.MinSkill + rand.IntN(domain.MaxSkill-domain.MinSkill+1))
	}
	return s
}

func mint(client *http.Client, cardsURL, owner, name string, skills domain.Skills) (string, error) {
	resp, err := postJSON(client, cardsURL+"/tokens", mintRequest{Owner: owner, Name: name, Skills: skills}, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		TokenID string `json:"tokenId"`
	}
	if err := decode(resp, &result); err != nil {
		return "", err
	}
	return result.TokenID, nil
}
