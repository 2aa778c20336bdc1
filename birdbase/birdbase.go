package birdbase

import (
	"time"

	"kestrel/logger"

	"git.mills.io/prologic/bitcask"
)

var (
	Data *bitcask.Bitcask
)

func Init() {
	// Increase the maximum value size to 10MB (from the default 65KB)
	var err error
	Data, err = bitcask.Open("kestrel.db", bitcask.WithMaxValueSize(10*1024*1024))
	if err != nil {
		logger.Fatal("Failed to open database", "error", err)
	}

	go func() {
		for {
			time.Sleep(24 * time.Hour)
			Merge()
		}
	}()
}

func Merge() {
	logger.Info("Merging database to reclaim space...")
	err := Data.Merge()
	if err != nil {
		logger.Error("Error merging database", "error", err)
	} else {
		logger.Info("Database merge complete.")
	}
}

func PutBytes(key string, value []byte) error {
	compressedValue, err := compress(value)
	if err != nil {
		return err
	}
	return Data.Put(CacheKey(key), compressedValue)
}

func PutString(key string, value string) error {
	return PutBytes(key, []byte(value))
}

func Get(key string) ([]byte, error) {
	value, err := Data.Get(CacheKey(key))
	if err != nil {
		return nil, err
	}
	return decompress(value)
}

func Has(key string) bool {
	return Data.Has(CacheKey(key))
}

func Delete(key string) error {
	return Data.Delete(CacheKey(key))
}

func Close() {
	if Data != nil {
		_ = Data.Close()
	}
}
