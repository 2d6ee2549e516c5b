package events

import (
	"fmt"
)

// ChannelResolver determines which Redis channels an envelope goes to.
type ChannelResolver interface {
	ResolveChannels(env Envelope, payload AssetPayload) []string
}

// AssetChannelResolver fans an event out to the shared stream channel, the
// per-asset channel and, when the asset has an owner, the per-owner channel.
type AssetChannelResolver struct {
	StreamChannel string
}

func NewAssetChannelResolver(streamChannel string) *AssetChannelResolver {
	return &AssetChannelResolver{StreamChannel: streamChannel}
}

func (r *AssetChannelResolver) ResolveChannels(env Envelope, payload AssetPayload) []string {
	var channels []string
	if r.StreamChannel != "" {
		channels = append(channels, r.StreamChannel)
	}
	if env.AggregateID != "" {
		channels = append(channels, ChannelPrefixAsset+env.AggregateID)
	}
	if payload.OwnerID != nil {
		channels = append(channels, fmt.Sprintf("%s%d", ChannelPrefixOwner, *payload.OwnerID))
	}
	return channels
}
