package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// Actuator drives AWS Elastic IP associations. Node ids are EC2
// instance ids, so AssociateAddress can target them directly.
// AllowReassociation is the provider-side "steal from dead peer"
// capability the engine relies on.
type Actuator struct {
	client *awsec2.Client
}

func New(ctx context.Context) (*Actuator, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Actuator{
		client: awsec2.NewFromConfig(cfg),
	}, nil
}

func (a *Actuator) Associate(ctx context.Context, eip models.EIPID, instance models.NodeID) error {
	_, err := a.client.AssociateAddress(ctx, &awsec2.AssociateAddressInput{
		AllocationId:       aws.String(eip.String()),
		InstanceId:         aws.String(instance.String()),
		AllowReassociation: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to associate %s with %s: %w", eip, instance, err)
	}
	log.Info().Msgf("associated %s with %s", eip, instance)
	return nil
}

func (a *Actuator) Disassociate(ctx context.Context, eip models.EIPID, instance models.NodeID) error {
	address, err := a.describe(ctx, eip)
	if err != nil {
		return err
	}
	if address == nil || address.AssociationId == nil {
		// Nothing to release.
		return nil
	}
	if instance != "" && aws.ToString(address.InstanceId) != instance.String() {
		// Already moved elsewhere; releasing would steal it back.
		log.Warn().Msgf("skip disassociate of %s: held by %s, not %s",
			eip, aws.ToString(address.InstanceId), instance)
		return nil
	}
	_, err = a.client.DisassociateAddress(ctx, &awsec2.DisassociateAddressInput{
		AssociationId: address.AssociationId,
	})
	if err != nil {
		return fmt.Errorf("failed to disassociate %s: %w", eip, err)
	}
	log.Info().Msgf("disassociated %s from %s", eip, instance)
	return nil
}

func (a *Actuator) CurrentHolder(ctx context.Context, eip models.EIPID) (models.NodeID, error) {
	address, err := a.describe(ctx, eip)
	if err != nil {
		return "", err
	}
	if address == nil {
		return "", nil
	}
	return models.NodeID(aws.ToString(address.InstanceId)), nil
}

func (a *Actuator) describe(ctx context.Context, eip models.EIPID) (*ec2types.Address, error) {
	out, err := a.client.DescribeAddresses(ctx, &awsec2.DescribeAddressesInput{
		AllocationIds: []string{eip.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", eip, err)
	}
	if len(out.Addresses) == 0 {
		return nil, nil
	}
	return &out.Addresses[0], nil
}
