package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventrelay/internal/awsx"
	"github.com/alfredjeanlab/eventrelay/internal/bus"
	"github.com/alfredjeanlab/eventrelay/internal/client"
	"github.com/alfredjeanlab/eventrelay/internal/generate"
	"github.com/alfredjeanlab/eventrelay/internal/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a student registration",
	Long: `Publish a student registration through a running publisher.

With --batch the publisher generates and sends a batch of synthetic
students. With --generate a single synthetic student is sent. With
--direct the event bus is called from this process instead of going
through the publisher's HTTP API.`,
	GroupID: "client",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetBool("batch")
		direct, _ := cmd.Flags().GetBool("direct")

		var student model.Student
		if !batch {
			s, err := studentFromFlags(cmd)
			if err != nil {
				return err
			}
			student = s
		}

		if direct {
			return publishDirect(cmd, batch, student)
		}

		c := client.NewHTTPClient(httpURL, authToken)
		defer c.Close()

		var (
			msg string
			err error
		)
		if batch {
			msg, err = c.PublishBatch(cmd.Context())
		} else {
			msg, err = c.PublishStudent(cmd.Context(), student)
		}
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		return printPublishResult(cmd.OutOrStdout(), msg, student)
	},
}

// studentFromFlags builds the record to publish from --id and friends, or
// generates one with --generate.
func studentFromFlags(cmd *cobra.Command) (model.Student, error) {
	if gen, _ := cmd.Flags().GetBool("generate"); gen {
		return generate.New(0).Student()
	}
	id, _ := cmd.Flags().GetString("id")
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")
	dob, _ := cmd.Flags().GetString("dob")
	s := model.Student{StudentID: id, Firstname: first, Lastname: last, DateOfBirth: dob}
	if err := s.Validate(); err != nil {
		return model.Student{}, fmt.Errorf("%w (use --id or --generate)", err)
	}
	return s, nil
}

func publishDirect(cmd *cobra.Command, batch bool, student model.Student) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	awsCfg, err := awsx.Load(cmd.Context(), cfg.AWSOptions())
	if err != nil {
		return err
	}
	publisher := bus.NewPublisher(bus.NewAPI(awsCfg), cfg.Route(), generate.New(0), nil, logger)

	var ack bus.Ack
	if batch {
		ack, err = publisher.PublishGenerated(cmd.Context(), cfg.Bus.BatchSize)
	} else {
		ack, err = publisher.Publish(cmd.Context(), student)
	}
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}

	msg := "Event published successfully."
	if batch {
		msg = fmt.Sprintf("%d events published successfully.", ack.Accepted)
	}
	return printPublishResult(cmd.OutOrStdout(), msg, student)
}

func init() {
	publishCmd.Flags().Bool("batch", false, "publish a generated batch")
	publishCmd.Flags().Bool("generate", false, "publish one generated student")
	publishCmd.Flags().Bool("direct", false, "call the event bus directly instead of the publisher API")
	publishCmd.Flags().String("id", "", "student ID")
	publishCmd.Flags().String("first", "", "first name")
	publishCmd.Flags().String("last", "", "last name")
	publishCmd.Flags().String("dob", "", "date of birth (yyyy-MM-dd)")
	publishCmd.MarkFlagsMutuallyExclusive("batch", "generate")
	publishCmd.MarkFlagsMutuallyExclusive("batch", "id")
}
