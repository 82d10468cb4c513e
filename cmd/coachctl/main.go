// coachctl служебные команды booking сервиса: хеш staff ключа и просмотр DLQ уведомлений.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"

	kafkaevent "github.com/shestoi/coachcarter/internal/event/kafka"
	platformkafka "github.com/shestoi/coachcarter/platform/kafka"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := platformkafka.DefaultConfig()

	return &cli.App{
		Name:  "coachctl",
		Usage: "Booking service admin tool",
		Commands: []*cli.Command{
			{
				Name:      "hash-key",
				Usage:     "print bcrypt hash for STAFF_API_KEY_HASH",
				ArgsUsage: "<staff_key>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cost", Value: bcrypt.DefaultCost, Usage: "bcrypt cost"},
				},
				Action: hashKey,
			},
			{
				Name:  "dlq",
				Usage: "inspect notification dead letter queue",
				Subcommands: []*cli.Command{
					{
						Name:  "preview",
						Usage: "print failed notifications without consuming them",
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:    "brokers",
								EnvVars: []string{"KAFKA_BROKERS"},
								Value:   cli.NewStringSlice(defaults.Brokers...),
							},
							&cli.StringFlag{
								Name:    "topic",
								EnvVars: []string{"KAFKA_NOTIFICATION_DLQ_TOPIC"},
								Value:   defaults.NotificationDLQTopic,
							},
							&cli.IntFlag{Name: "limit", Value: 100, Usage: "0 reads everything"},
							&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "stop after no new messages for this long"},
						},
						Action: previewDLQ,
					},
				},
			},
		},
	}
}

func hashKey(c *cli.Context) error {
	key := strings.TrimSpace(c.Args().First())
	if key == "" {
		return errors.New("staff key is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), c.Int("cost"))
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	_, err = fmt.Fprintln(c.App.Writer, string(hash))
	return err
}

func previewDLQ(c *cli.Context) error {
	// сплит по запятой для значения из KAFKA_BROKERS="a:9092,b:9092"
	var brokers []string
	for _, b := range c.StringSlice("brokers") {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}

	reader := kafkaevent.NewDLQReader(brokers, c.String("topic"), "coachctl-dlq-preview")
	defer reader.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	entries, err := reader.Preview(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(c.App.Writer, "No failed notifications")
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tREFERENCE\tNOTIFICATION\tCHANNEL\tFAILED_AT\tERROR")
	for _, e := range entries {
		if e.Malformed {
			fmt.Fprintf(w, "%d/%d\t%s\t-\t-\t-\tmalformed message\n", e.Partition, e.Offset, e.BookingReference)
			continue
		}
		fmt.Fprintf(w, "%d/%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Partition, e.Offset, e.BookingReference, e.Notification, e.Channel,
			e.FailedAt.Format(time.RFC3339), e.ErrorMessage)
	}
	return w.Flush()
}
