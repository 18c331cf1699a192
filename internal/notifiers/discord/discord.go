// Package discord sends cleanup-run notifications to a Discord channel.
package discord

import (
	"context"
	"fmt"

	"github.com/hibare/GoCommon/v2/pkg/notifiers/discord"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
)

const (
	successColor = 1498748
	failureColor = 14554702
)

// Discord sends notifications to a Discord channel via webhook.
type Discord struct {
	Cfg    *config.Config
	client discord.ClientIface
}

// Enabled checks if the Discord notifier is enabled in the configuration.
func (d *Discord) Enabled() bool {
	return d.Cfg.Notifiers.Discord.Enabled
}

// NotifyRunSuccess sends a success notification to the Discord channel.
func (d *Discord) NotifyRunSuccess(ctx context.Context, release, provider string, summary string) error {
	message := discord.Message{
		Embeds: []discord.Embed{
			{
				Color: successColor,
				Fields: []discord.EmbedField{
					{
						Name:   "Provider",
						Value:  provider,
						Inline: false,
					},
					{
						Name:   "Summary",
						Value:  summary,
						Inline: false,
					},
				},
			},
		},
		Components: []discord.Component{},
		Username:   constants.ProgramIdentifier,
		Content:    fmt.Sprintf("**DB Cleanup Run Successful** - *%s*", release),
	}

	return d.client.Send(ctx, &message)
}

// NotifyRunFailure sends a failure notification to the Discord channel.
func (d *Discord) NotifyRunFailure(ctx context.Context, release string, runErr string) error {
	message := discord.Message{
		Embeds: []discord.Embed{
			{
				Title:       "Error",
				Description: runErr,
				Color:       failureColor,
			},
		},
		Components: []discord.Component{},
		Username:   constants.ProgramIdentifier,
		Content:    fmt.Sprintf("**DB Cleanup Run Failed** - *%s*", release),
	}

	return d.client.Send(ctx, &message)
}

// NewDiscordNotifier creates a new Discord notifier instance.
func NewDiscordNotifier(cfg *config.Config) (*Discord, error) {
	client, err := discord.NewClient(discord.Options{
		WebhookURL: cfg.Notifiers.Discord.Webhook,
	})
	if err != nil {
		return nil, err
	}

	return &Discord{
		Cfg:    cfg,
		client: client,
	}, nil
}
