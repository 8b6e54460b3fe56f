package cloudapi

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// AWSClient implements Client over EC2/EBS. The location argument of the
// Client interface selects the region; an empty location keeps the region
// from the default config chain.
//
// EBS snapshots are incremental by construction and carry no storage SKU, so
// CreateRequest.Incremental and SKU are accepted and recorded but do not
// change the API call.
type AWSClient struct {
	ec2 *ec2.Client
}

// ConnectAWS builds an AWSClient from the default credential/config chain.
func ConnectAWS(ctx context.Context, region string) (*AWSClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &AWSClient{ec2: ec2.NewFromConfig(cfg)}, nil
}

func (a *AWSClient) Ping(ctx context.Context) error {
	_, err := a.ec2.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		OwnerIds:   []string{"self"},
		MaxResults: aws.Int32(5),
	})
	return err
}

func (a *AWSClient) FindInstance(ctx context.Context, id, location string) (InstanceInfo, error) {
	in := &ec2.DescribeInstancesInput{}
	if strings.HasPrefix(id, "i-") {
		in.InstanceIds = []string{id}
	} else {
		in.Filters = []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{id}}}
	}
	resp, err := a.ec2.DescribeInstances(ctx, in)
	if err != nil {
		return InstanceInfo{}, awsMapErr(err, "instance", id)
	}
	var inst *ec2types.Instance
	for _, res := range resp.Reservations {
		for i := range res.Instances {
			inst = &res.Instances[i]
			break
		}
	}
	if inst == nil {
		return InstanceInfo{}, &NotFoundError{Resource: "instance", Name: id}
	}
	info := InstanceInfo{
		ID:             aws.ToString(inst.InstanceId),
		Location:       location,
		RootDeviceName: aws.ToString(inst.RootDeviceName),
		OSDiskName:     aws.ToString(inst.RootDeviceName),
	}
	for _, bdm := range inst.BlockDeviceMappings {
		if bdm.Ebs == nil {
			continue
		}
		info.Devices = append(info.Devices, DeviceMapping{
			DeviceName: aws.ToString(bdm.DeviceName),
			VolumeID:   aws.ToString(bdm.Ebs.VolumeId),
		})
	}
	return info, nil
}

func (a *AWSClient) FindVolume(ctx context.Context, id, location string) (VolumeInfo, error) {
	in := &ec2.DescribeVolumesInput{}
	if strings.HasPrefix(id, "vol-") {
		in.VolumeIds = []string{id}
	} else {
		in.Filters = []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{id}}}
	}
	resp, err := a.ec2.DescribeVolumes(ctx, in)
	if err != nil {
		return VolumeInfo{}, awsMapErr(err, "volume", id)
	}
	if len(resp.Volumes) == 0 {
		return VolumeInfo{}, &NotFoundError{Resource: "volume", Name: id}
	}
	v := resp.Volumes[0]
	return VolumeInfo{
		ID:       aws.ToString(v.VolumeId),
		Name:     id,
		Location: location,
		SKU:      string(v.VolumeType),
	}, nil
}

func (a *AWSClient) CreateSnapshot(ctx context.Context, req CreateRequest) (string, error) {
	tags := make([]ec2types.Tag, 0, len(req.Tags)+1)
	tags = append(tags, ec2types.Tag{Key: aws.String("Name"), Value: aws.String(req.Name)})
	for k, v := range req.Tags {
		tags = append(tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	resp, err := a.ec2.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(req.SourceVolumeID),
		Description: aws.String(req.Name),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSnapshot,
			Tags:         tags,
		}},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(resp.SnapshotId), nil
}

func (a *AWSClient) ListSnapshots(ctx context.Context, tagFilter map[string]string) ([]SnapshotRecord, error) {
	in := &ec2.DescribeSnapshotsInput{OwnerIds: []string{"self"}}
	for k, v := range tagFilter {
		in.Filters = append(in.Filters, ec2types.Filter{
			Name:   aws.String("tag:" + k),
			Values: []string{v},
		})
	}
	var out []SnapshotRecord
	p := ec2.NewDescribeSnapshotsPaginator(a.ec2, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Snapshots {
			rec := SnapshotRecord{
				ID:             aws.ToString(s.SnapshotId),
				Name:           aws.ToString(s.Description),
				SourceVolumeID: aws.ToString(s.VolumeId),
				Incremental:    true, // every EBS snapshot is incremental
				Tags:           map[string]string{},
			}
			if s.StartTime != nil {
				rec.Created = s.StartTime.UTC()
			}
			for _, t := range s.Tags {
				if aws.ToString(t.Key) == "Name" {
					rec.Name = aws.ToString(t.Value)
					continue
				}
				rec.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (a *AWSClient) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := a.ec2.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(id)})
	return awsMapErr(err, "snapshot", id)
}

func awsMapErr(err error, resource, name string) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorCode(), "NotFound") {
		return &NotFoundError{Resource: resource, Name: name}
	}
	return err
}
