package servicebus

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"
)

// JobNotifier mirrors job status events onto an Azure Service Bus queue.
type JobNotifier struct {
	AzservicebusClient *azservicebus.Client
	QueueName          string
}

func NewJobNotifier(azServiceBusClient *azservicebus.Client, queueName string) repository.IJobNotifier {
	return &JobNotifier{AzservicebusClient: azServiceBusClient, QueueName: queueName}
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

	sender, err := jobNotifier.AzservicebusClient.NewSender(jobNotifier.QueueName, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		err := sender.Close(ctx)
		if err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, ctx)

	sbMessage := &azservicebus.Message{
		Body: payload,
	}
	err = sender.SendMessage(ctx, sbMessage, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}

	return nil
}
