package getter

var (
	AppendQueryParams = appendQueryParams
	BaseName          = baseName
)
