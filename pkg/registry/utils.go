package registry

import (
	"time"

	"github.com/google/uuid"
)

// ShortDigestLength is the digest prefix used for storage paths and display.
const ShortDigestLength = 12

func TruncateDigest(digest string, length int) string {
	if len(digest) <= length {
		return digest
	}
	return digest[:length]
}

func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func RemoveTagFromVersions(versions *[]VersionInfo, tag string) {
	for i := range *versions {
		(*versions)[i].Tags = RemoveTag((*versions)[i].Tags, tag)
	}
}

func AddTagToVersion(versions *[]VersionInfo, shortDigest, tag string) {
	for i := range *versions {
		if (*versions)[i].Hash == shortDigest {
			if !HasTag((*versions)[i].Tags, tag) {
				(*versions)[i].Tags = append((*versions)[i].Tags, tag)
			}
			break
		}
	}
}

func RemoveTag(tags []string, tagToRemove string) []string {
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tagToRemove {
			result = append(result, t)
		}
	}
	return result
}

func CreateVersionInfo(shortDigest, fullDigest string, size int, sourcePath, tag string) VersionInfo {
	tags := make([]string, 0)
	if tag != "" {
		tags = append(tags, tag)
	}

	return VersionInfo{
		Hash:       shortDigest,
		FullDigest: fullDigest,
		Size:       int64(size),
		SourcePath: sourcePath,
		CreatedAt:  time.Now(),
		Tags:       tags,
	}
}

// NewDeploymentRecord stamps a deployment of digest with a fresh record id.
func NewDeploymentRecord(digest, network, endpoint string) DeploymentRecord {
	return DeploymentRecord{
		ID:         uuid.NewString(),
		Digest:     digest,
		Network:    network,
		Endpoint:   endpoint,
		DeployedAt: time.Now(),
	}
}
