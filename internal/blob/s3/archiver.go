package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/harborplay/roundengine/internal/domain"
)

// RoundArchiver implements domain.RoundArchiver: each settled round is
// written as one JSON object under
// rounds/{game}/{duration}/{timeline}/{periodId}.json. Archives are
// write-only from this service; readers are offline audit tooling.
type RoundArchiver struct {
	client *Client
}

// NewRoundArchiver creates a RoundArchiver backed by the given Client.
func NewRoundArchiver(c *Client) *RoundArchiver {
	return &RoundArchiver{client: c}
}

// roundRecord is the archived document for one settled round.
type roundRecord struct {
	Result     domain.Result    `json:"result"`
	Branch     string           `json:"branch"`
	Exposure   map[string]int64 `json:"exposure,omitempty"`
	Bettors    int64            `json:"bettors"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// ArchiveRound uploads the settled round with its closing exposure snapshot
// and distinct-bettor count.
func (a *RoundArchiver) ArchiveRound(ctx context.Context, res domain.Result, exposure map[string]int64, bettors int64) error {
	rec := roundRecord{
		Result:     res,
		Branch:     string(res.Branch),
		Exposure:   exposure,
		Bettors:    bettors,
		ArchivedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("s3blob: marshal round %s: %w", res.Key(), err)
	}

	path := fmt.Sprintf("rounds/%s/%d/%s/%s.json",
		res.GameType, res.Duration, res.Timeline, res.PeriodID)

	_, err = a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive round %s: %w", res.Key(), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RoundArchiver = (*RoundArchiver)(nil)
