package awsutil

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// OfferID joins an instance type and AZ into the ID a spot offer is
// listed under, e.g. "g5.xlarge@us-east-2a".
func OfferID(instanceType, az string) string {
	return instanceType + "@" + az
}

func ParseOfferID(id string) (instanceType, az string, err error) {
	instanceType, az, ok := strings.Cut(id, "@")
	if !ok || instanceType == "" || az == "" {
		return "", "", fmt.Errorf("offer id %q is not <instance-type>@<az>", id)
	}
	return instanceType, az, nil
}

func LookupAMI(ctx context.Context, scfg SpotConfig, client *ec2.Client) (string, error) {
	if scfg.AMIID != "" {
		return scfg.AMIID, nil
	}
	input := &ec2.DescribeImagesInput{
		Filters: []types.Filter{
			{Name: aws.String("name"), Values: []string{scfg.AMIPattern}},
			{Name: aws.String("architecture"), Values: []string{"x86_64"}},
			{Name: aws.String("state"), Values: []string{"available"}},
		},
	}
	if scfg.AMIOwner != "" {
		input.Owners = []string{scfg.AMIOwner}
	}
	result, err := client.DescribeImages(ctx, input)
	if err != nil {
		return "", fmt.Errorf("looking up AMI: %w", err)
	}
	if len(result.Images) == 0 {
		return "", fmt.Errorf("no AMI matching %q found", scfg.AMIPattern)
	}
	// Newest first; image creation dates are RFC 3339 strings.
	sort.Slice(result.Images, func(i, j int) bool {
		return aws.ToString(result.Images[i].CreationDate) > aws.ToString(result.Images[j].CreationDate)
	})
	return *result.Images[0].ImageId, nil
}

func LookupSecurityGroup(ctx context.Context, client *ec2.Client, name string) (string, error) {
	result, err := client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupNames: []string{name},
	})
	if err != nil {
		return "", fmt.Errorf("looking up security group: %w", err)
	}
	if len(result.SecurityGroups) == 0 {
		return "", fmt.Errorf("security group %q not found", name)
	}
	return *result.SecurityGroups[0].GroupId, nil
}

func LookupSubnet(ctx context.Context, client *ec2.Client, az string) (string, error) {
	result, err := client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{
			{Name: aws.String("availability-zone"), Values: []string{az}},
			{Name: aws.String("default-for-az"), Values: []string{"true"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("looking up subnet: %w", err)
	}
	if len(result.Subnets) == 0 {
		return "", fmt.Errorf("no default subnet found for AZ %s", az)
	}
	return *result.Subnets[0].SubnetId, nil
}

// RunSpotInstance starts one one-time spot instance and returns its ID.
// The instance terminates itself if the spot capacity is reclaimed.
func RunSpotInstance(ctx context.Context, client *ec2.Client, scfg SpotConfig, amiID, instanceType, subnetID, sgID string) (string, error) {
	runInput := &ec2.RunInstancesInput{
		ImageId:      aws.String(amiID),
		InstanceType: types.InstanceType(instanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		SubnetId:     aws.String(subnetID),
		InstanceMarketOptions: &types.InstanceMarketOptionsRequest{
			MarketType: types.MarketTypeSpot,
			SpotOptions: &types.SpotMarketOptions{
				SpotInstanceType:             types.SpotInstanceTypeOneTime,
				InstanceInterruptionBehavior: types.InstanceInterruptionBehaviorTerminate,
			},
		},
		BlockDeviceMappings: []types.BlockDeviceMapping{
			{
				DeviceName: aws.String("/dev/xvda"),
				Ebs: &types.EbsBlockDevice{
					VolumeSize:          aws.Int32(scfg.DiskGB),
					VolumeType:          types.VolumeTypeGp3,
					DeleteOnTermination: aws.Bool(true),
				},
			},
		},
		TagSpecifications: []types.TagSpecification{
			{
				ResourceType: types.ResourceTypeInstance,
				Tags: []types.Tag{
					{Key: aws.String("Name"), Value: aws.String(scfg.NameTag)},
					{Key: aws.String("gpulaunch-managed"), Value: aws.String("true")},
				},
			},
		},
	}
	if scfg.KeyName != "" {
		runInput.KeyName = aws.String(scfg.KeyName)
	}
	if sgID != "" {
		runInput.SecurityGroupIds = []string{sgID}
	}
	if scfg.Onstart != "" {
		runInput.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(UserData(scfg.Onstart))))
	}

	result, err := client.RunInstances(ctx, runInput)
	if err != nil {
		return "", fmt.Errorf("launching instance: %w", err)
	}
	if len(result.Instances) == 0 || result.Instances[0].InstanceId == nil {
		return "", fmt.Errorf("launching instance: no instance in response")
	}
	return *result.Instances[0].InstanceId, nil
}

// UserData wraps a one-line startup command into a shell script.
func UserData(onstart string) string {
	return "#!/bin/bash\n" + onstart + "\n"
}

// TerminateInstance terminates one instance and returns the state EC2
// reports it moving into.
func TerminateInstance(ctx context.Context, client *ec2.Client, id string) (types.InstanceStateName, error) {
	result, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return "", fmt.Errorf("terminating instance: %w", err)
	}
	for _, change := range result.TerminatingInstances {
		if aws.ToString(change.InstanceId) == id && change.CurrentState != nil {
			return change.CurrentState.Name, nil
		}
	}
	return "", fmt.Errorf("terminating instance: %s not in response", id)
}
