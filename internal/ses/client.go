// Package ses wraps the AWS SES v2 API: outbound sending, account-level VDM
// send statistics, and dedicated IP warmup status.
package ses

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/deliverability/internal/config"
	"github.com/ignite/deliverability/internal/domain"
)

// api is the subset of the SES v2 client this package calls.
type api interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	BatchGetMetricData(ctx context.Context, in *sesv2.BatchGetMetricDataInput, opts ...func(*sesv2.Options)) (*sesv2.BatchGetMetricDataOutput, error)
	GetDedicatedIp(ctx context.Context, in *sesv2.GetDedicatedIpInput, opts ...func(*sesv2.Options)) (*sesv2.GetDedicatedIpOutput, error)
}

// Client is an AWS SES v2 API client.
type Client struct {
	client api
	region string
}

// NewClient creates a new SES API client with static credentials.
func NewClient(ctx context.Context, cfg appconfig.SESConfig) (*Client, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"",
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{
		client: sesv2.NewFromConfig(awsCfg),
		region: cfg.Region,
	}, nil
}

// newWithAPI wires a fake API, for tests.
func newWithAPI(a api) *Client { return &Client{client: a} }

// Send delivers one resolved message and returns the provider message id as
// the correlation id for later delivery events.
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	body := &types.Body{}
	if msg.HTMLContent != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLContent)}
	}
	if msg.TextContent != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextContent)}
	}

	out, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{msg.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sending to %s: %w", msg.Email, err)
	}
	if out.MessageId == nil {
		return "", nil
	}
	return *out.MessageId, nil
}

// SendStatistics fetches account-level VDM metrics for the window as a time
// series of per-bucket data points, ordered by timestamp.
func (c *Client) SendStatistics(ctx context.Context, from, to time.Time) ([]domain.SendDataPoint, error) {
	queries := make([]types.BatchGetMetricDataQuery, 0, len(statisticsMetrics()))
	for i, metric := range statisticsMetrics() {
		queries = append(queries, types.BatchGetMetricDataQuery{
			Id:        aws.String(fmt.Sprintf("q%d_%s", i, metric)),
			Namespace: types.MetricNamespaceVdm,
			Metric:    types.Metric(metric),
			StartDate: aws.Time(from),
			EndDate:   aws.Time(to),
		})
	}

	output, err := c.client.BatchGetMetricData(ctx, &sesv2.BatchGetMetricDataInput{
		Queries: queries,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching send statistics: %w", err)
	}

	buckets := make(map[time.Time]*domain.SendDataPoint)
	for _, result := range output.Results {
		if result.Id == nil {
			continue
		}
		for i, ts := range result.Timestamps {
			if i >= len(result.Values) {
				break
			}
			key := ts.UTC()
			point, ok := buckets[key]
			if !ok {
				point = &domain.SendDataPoint{Timestamp: key}
				buckets[key] = point
			}
			val := int64(result.Values[i])
			switch {
			case containsMetric(*result.Id, MetricPermanentBounce),
				containsMetric(*result.Id, MetricTransientBounce):
				point.Bounces += val
			case containsMetric(*result.Id, MetricComplaint):
				point.Complaints += val
			case containsMetric(*result.Id, MetricSend):
				point.DeliveryAttempts += val
			}
		}
	}

	points := make([]domain.SendDataPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}

// WarmupStatus returns the provider-reported warmup status for a dedicated
// IP, e.g. "IN_PROGRESS" or "DONE".
func (c *Client) WarmupStatus(ctx context.Context, ip string) (string, error) {
	out, err := c.client.GetDedicatedIp(ctx, &sesv2.GetDedicatedIpInput{
		Ip: aws.String(ip),
	})
	if err != nil {
		return "", fmt.Errorf("getting dedicated ip %s: %w", ip, err)
	}
	if out.DedicatedIp == nil {
		return "", fmt.Errorf("getting dedicated ip %s: empty response", ip)
	}
	return string(out.DedicatedIp.WarmupStatus), nil
}
