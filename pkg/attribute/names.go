// ABOUTME: Well-known attribute set names and attribute names
// ABOUTME: These literals are load-bearing: stages look records up by reconstructing them

package attribute

// Resource-map set names, one per business object kind
const (
	SetProjectRM      = "Project Resource Map"
	SetCollectionRM   = "Collection Resource Map"
	SetDataItemRM     = "DataItem Resource Map"
	SetFileRM         = "File Resource Map"
	SetMetadataFileRM = "MetadataFile Resource Map"
)

// Non-resource-map set names. BagIt and BagIt-Profile are singletons keyed
// by their own set name; File sets hold raw per-file metadata keyed by the
// absolute extracted path.
const (
	SetFile         = "File"
	SetBagIt        = "BagIt"
	SetBagItProfile = "BagIt-Profile"
)

// Descriptive attribute names shared across resource-map records
const (
	AttrResourceID  = "resourceId"
	AttrTitle       = "title"
	AttrDescription = "description"
	AttrCreator     = "creator"
	AttrCreated     = "created"
	AttrPublished   = "published"
	AttrPath        = "path"
)

// Relationship attribute names
const (
	AttrAggregatesCollection = "aggregates-collection"
	AttrAggregatesDataItem   = "aggregates-dataitem"
	AttrAggregatesFile       = "aggregates-file"
	AttrIsPartOfCollection   = "is-part-of-collection"
	AttrAggregatedByProject  = "aggregated-by-project"
	AttrIsMetadataFor        = "is-metadata-for"
)

// Format, size and fixity attribute names. Asserted formats come from the
// resource map; detected formats come from content inspection.
const (
	AttrFormat         = "format"
	AttrDetectedFormat = "detected-format"
	AttrSize           = "size"
	AttrChecksumMD5    = "checksum-md5"
	AttrChecksumSHA256 = "checksum-sha256"
)

// Per-type declared identifier attribute names
const (
	AttrProjectIdentifier      = "Project-Identifier"
	AttrCollectionIdentifier   = "Collection-Identifier"
	AttrDataItemIdentifier     = "DataItem-Identifier"
	AttrFileIdentifier         = "File-Identifier"
	AttrMetadataFileIdentifier = "MetadataFile-Identifier"
)
