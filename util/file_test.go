package util_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/securedrop/trustchain/util"
)

var _ = Describe("Key files", func() {

	var (
		tmpDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "trustchain_util_test_tmp_*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.RemoveAll(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Restricted write", func() {
		Context("of secret bytes", func() {
			It("should be readable only by the owner", func() {
				file := filepath.Join(tmpDir, "keys", "root.json")

				err := util.WriteBytesWithRestrictedPermission(context.Background(), file, []byte("secret"))
				Expect(err).NotTo(HaveOccurred())

				info, err := os.Stat(file)
				Expect(err).NotTo(HaveOccurred())
				Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))

				dirInfo, err := os.Stat(filepath.Dir(file))
				Expect(err).NotTo(HaveOccurred())
				Expect(dirInfo.Mode().Perm()).To(Equal(os.FileMode(0700)))

				bs, err := util.ReadFile(context.Background(), file)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(bs)).To(Equal("secret"))
			})

			It("should overwrite an existing file and leave no temp files", func() {
				file := filepath.Join(tmpDir, "intermediate.json")

				Expect(util.WriteBytesWithRestrictedPermission(context.Background(), file, []byte("first"))).To(Succeed())
				Expect(util.WriteBytesWithRestrictedPermission(context.Background(), file, []byte("second"))).To(Succeed())

				bs, err := util.ReadFile(context.Background(), file)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(bs)).To(Equal("second"))

				entries, err := os.ReadDir(tmpDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
			})

			It("should not write once the context is done", func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
				defer cancel()
				time.Sleep(time.Millisecond)

				file := filepath.Join(tmpDir, "late.json")
				err := util.WriteBytesWithRestrictedPermission(ctx, file, []byte("late"))
				Expect(err).To(HaveOccurred())
				Expect(util.FileExists(file)).To(BeFalse())
			})
		})
	})

	Describe("Listing files", func() {
		Context("by pattern", func() {
			It("should return sorted matches", func() {
				for _, name := range []string{"b.json", "a.json", "c.txt"} {
					Expect(os.WriteFile(filepath.Join(tmpDir, name), []byte("{}"), 0600)).To(Succeed())
				}

				files, err := util.ListFiles(tmpDir, "*.json")
				Expect(err).NotTo(HaveOccurred())
				Expect(files).To(Equal([]string{filepath.Join(tmpDir, "a.json"), filepath.Join(tmpDir, "b.json")}))
			})
		})
	})

	Describe("Reading a missing file", func() {
		It("should return a not-exist error", func() {
			_, err := util.ReadFile(context.Background(), filepath.Join(tmpDir, "missing.json"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
