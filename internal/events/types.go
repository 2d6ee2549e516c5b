package events

// Asset lifecycle events, format domain.action.
const (
	EventTypeAssetCompleted = "asset.completed"
	EventTypeAssetFailed    = "asset.failed"
	EventTypeAssetDeleted   = "asset.deleted"
)

const AggregateTypeAsset = "asset"

// Redis channel prefixes
const (
	ChannelPrefixAsset = "channel:asset:"
	ChannelPrefixOwner = "channel:owner:"
)
