package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// SaveModel はモデルを gob でファイルに保存する
//
// 親ディレクトリが無ければ作成し、一時ファイルに書き込んでから rename する。
// 途中で失敗しても既存のファイルは壊れない。
//
// 使用例:
//
//	err := model.SaveModel(&artifact, "models/xgboost.pkl")
func SaveModel(model interface{}, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactError(filename, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return errors.NewArtifactError(filename, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := SaveModelToWriter(model, tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return errors.NewArtifactError(filename, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewArtifactError(filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.NewArtifactError(filename, err)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// ファイルが存在しない、またはデコードできない場合は ArtifactError を返す。
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewArtifactError(filename, err)
	}
	defer file.Close() //nolint:errcheck

	if err := LoadModelFromReader(model, file); err != nil {
		return errors.NewArtifactError(filename, err)
	}
	return nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
