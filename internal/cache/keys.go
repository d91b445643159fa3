package cache

import "fmt"

func SceneSearchKey(contentHash string) string {
	return fmt.Sprintf("scene:search:%s", contentHash)
}

func TileKey(mosaicHash string, z, x, y int) string {
	return fmt.Sprintf("tile:%s:%d:%d:%d", mosaicHash, z, x, y)
}
