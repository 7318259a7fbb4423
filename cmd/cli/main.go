package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "transfersaga-cli",
		Short: "TransferSaga CLI tool",
		Long:  `A command line interface for interacting with the TransferSaga API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the TransferSaga API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(transferCmd(), walletCmd(), rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer operations",
	}

	var (
		correlationID  string
		senderCustomer string
		receiver       string
		senderWallet   string
		receiverWallet string
		amount         string
		currency       string
		clientIP       string
	)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a money transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if correlationID == "" {
				correlationID = uuid.NewString()
			}

			return post("/api/v1/transfers", map[string]any{
				"correlation_id":       correlationID,
				"sender_customer_id":   senderCustomer,
				"receiver_customer_id": receiver,
				"sender_wallet_id":     senderWallet,
				"receiver_wallet_id":   receiverWallet,
				"amount":               amount,
				"currency":             currency,
				"client_ip_address":    clientIP,
			})
		},
	}
	startCmd.Flags().StringVar(&correlationID, "correlation-id", "", "Correlation ID (generated when empty)")
	startCmd.Flags().StringVar(&senderCustomer, "sender", "", "Sender customer ID")
	startCmd.Flags().StringVar(&receiver, "receiver", "", "Receiver customer ID")
	startCmd.Flags().StringVar(&senderWallet, "sender-wallet", "", "Sender wallet ID")
	startCmd.Flags().StringVar(&receiverWallet, "receiver-wallet", "", "Receiver wallet ID")
	startCmd.Flags().StringVar(&amount, "amount", "", "Transfer amount")
	startCmd.Flags().StringVar(&currency, "currency", "TRY", "Currency code")
	startCmd.Flags().StringVar(&clientIP, "client-ip", "", "Client IP address")

	getCmd := &cobra.Command{
		Use:   "get [correlation-id]",
		Short: "Get a transfer by correlation ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/transfers/" + args[0])
		},
	}

	cmd.AddCommand(startCmd, getCmd)

	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	var (
		walletID   string
		customerID string
		currency   string
		balance    string
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/wallets", map[string]any{
				"wallet_id":       walletID,
				"customer_id":     customerID,
				"currency":        currency,
				"initial_balance": balance,
			})
		},
	}
	createCmd.Flags().StringVar(&walletID, "id", "", "Wallet ID")
	createCmd.Flags().StringVar(&customerID, "customer", "", "Customer ID")
	createCmd.Flags().StringVar(&currency, "currency", "TRY", "Currency code")
	createCmd.Flags().StringVar(&balance, "balance", "0", "Initial balance")

	getCmd := &cobra.Command{
		Use:   "get [wallet-id]",
		Short: "Get a wallet by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/wallets/" + args[0])
		},
	}

	cmd.AddCommand(createCmd, getCmd)

	for _, action := range []string{"freeze", "unfreeze", "close"} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action + " [wallet-id]",
			Short: capitalize(action) + " a wallet",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return post("/api/v1/wallets/"+args[0]+"/"+action, nil)
			},
		})
	}

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Fraud rule operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List fraud rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/fraud/rules")
		},
	})

	return cmd
}

func get(path string) error {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	return report(resp)
}

func post(path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: timeout}

	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	return report(resp)
}

func report(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Write(body)
	}

	fmt.Println(pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return string(s[0]-'a'+'A') + s[1:]
}
