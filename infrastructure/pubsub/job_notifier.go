package pubsub

import (
	"context"
	"encoding/json"
	"log"

	"cloud.google.com/go/pubsub"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"
)

// JobNotifier publishes job status events to a Google Pub/Sub topic.
type JobNotifier struct {
	PubSubClient *pubsub.Client
	TopicName    string
}

func NewJobNotifier(pubSubClient *pubsub.Client, topicName string) repository.IJobNotifier {
	return &JobNotifier{
		PubSubClient: pubSubClient,
		TopicName:    topicName,
	}
}

func (jobNotifier *JobNotifier) NotifyJobStatus(ctx context.Context, job *model.PublishJob) error {
	payload, err := json.Marshal(dto.JobStatusEvent{
		JobID:             job.JobID,
		AccountID:         job.AccountID,
		Platform:          job.Platform,
		Status:            string(job.Status),
		PlatformPublishID: job.PlatformPublishID,
		Permalink:         job.Permalink,
		FailReason:        job.ErrorReason,
		OccurredAt:        job.UpdatedAt,
	})
	if err != nil {
		return err
	}

	topic := jobNotifier.PubSubClient.Topic(jobNotifier.TopicName)

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		log.Printf("Topic %v doesn't exist - creating it", jobNotifier.TopicName)
		_, err = jobNotifier.PubSubClient.CreateTopic(ctx, jobNotifier.TopicName)
		if err != nil {
			return err
		}
	}

	serverId, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().
		WithField("server ID", serverId).
		WithField("job_id", job.JobID).
		WithField("status", job.Status).
		Info("Job status published")
	return nil
}

// GetSubscription hands back a subscription handle for consumers that read
// the job status stream.
func (jobNotifier *JobNotifier) GetSubscription(subID string) (*pubsub.Subscription, error) {
	logger.GetLogger().WithField("subID", subID).Info("PubSub starting...")

	return jobNotifier.PubSubClient.Subscription(subID), nil
}
