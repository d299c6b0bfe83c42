package global

import (
	"hash/crc32"
	"strconv"
)

// HashPartition 按 key 计算分片号
func HashPartition(key string, numPartitions int) int32 {
	if numPartitions <= 1 {
		return 0
	}
	checksum := crc32.ChecksumIEEE([]byte(key))
	return int32(checksum % uint32(numPartitions))
}

// PictureShard 图片ID -> 分片（registry / edit lock 共用）
func PictureShard(pictureID int64, numShards int) int {
	return int(HashPartition(strconv.FormatInt(pictureID, 10), numShards))
}

// PresenceKey redis: 某图片当前在线编辑者集合
func PresenceKey(pictureID int64) string {
	return "pp:collab:picture:" + strconv.FormatInt(pictureID, 10) + ":viewers"
}

// UserCacheKey redis: 用户资料缓存
func UserCacheKey(userID int64) string {
	return "pp:user:" + strconv.FormatInt(userID, 10)
}
