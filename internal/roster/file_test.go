package roster_test

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/klasvik/prewarn/internal/roster"
	"github.com/klasvik/prewarn/pkg/logger"
)

const startListXML = `<?xml version="1.0" encoding="UTF-8"?>
<StartList xmlns="http://www.orienteering.org/datastandard/3.0">
  <Event>
    <Id>123</Id>
    <Name>Tiomila</Name>
    <StartTime><Date>2026-07-04</Date></StartTime>
  </Event>
  <ClassStart>
    <TeamStart>
      <Name>OK Example 1</Name>
      <BibNumber>12</BibNumber>
      <TeamMemberStart>
        <Person><Id>1</Id><Name><Family>Svensson</Family><Given>Anna</Given></Name></Person>
        <Start><Leg>1</Leg><BibNumber>12-1</BibNumber><ControlCard>500123</ControlCard></Start>
      </TeamMemberStart>
      <TeamMemberStart>
        <Person><Id>2</Id><Name><Family>Berg</Family><Given>Erik</Given></Name></Person>
        <Start><Leg>2</Leg><BibNumber>12-2</BibNumber><ControlCard>500124</ControlCard></Start>
      </TeamMemberStart>
      <TeamMemberStart>
        <Person><Id>3</Id><Name><Family>Lind</Family><Given>Sara</Given></Name></Person>
        <Start><Leg>3</Leg><BibNumber>12-3</BibNumber></Start>
      </TeamMemberStart>
    </TeamStart>
  </ClassStart>
</StartList>`

const updatedStartListXML = `<?xml version="1.0" encoding="UTF-8"?>
<StartList xmlns="http://www.orienteering.org/datastandard/3.0">
  <Event><Name>Tiomila</Name></Event>
  <ClassStart>
    <TeamStart>
      <BibNumber>99</BibNumber>
      <TeamMemberStart>
        <Start><Leg>1</Leg><ControlCard>500123</ControlCard></Start>
      </TeamMemberStart>
    </TeamStart>
  </ClassStart>
</StartList>`

func writeStartList(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileRoster(t *testing.T) {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
	ctx := context.Background()

	convey.Convey("Given a started file roster", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "startlist.xml")
		writeStartList(t, path, startListXML)

		r := roster.NewFile(path, "", nil)
		convey.So(r.Start(ctx), convey.ShouldBeNil)
		defer r.Stop()
		convey.So(r.IsRunning(), convey.ShouldBeTrue)

		convey.Convey("A known card resolves to team bib and leg", func() {
			entry, err := r.LookupCard(ctx, "500124")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Bib, convey.ShouldEqual, "12")
			convey.So(entry.Leg, convey.ShouldEqual, "2")
		})

		convey.Convey("An unknown card returns ErrNotFound", func() {
			_, err := r.LookupCard(ctx, "999999")
			convey.So(errors.Is(err, roster.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("A member without a control card is not indexed", func() {
			_, err := r.LookupCard(ctx, "")
			convey.So(errors.Is(err, roster.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("Refresh swaps in the new start list", func() {
			writeStartList(t, path, updatedStartListXML)
			convey.So(r.Refresh(ctx), convey.ShouldBeNil)

			entry, err := r.LookupCard(ctx, "500123")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Bib, convey.ShouldEqual, "99")

			_, err = r.LookupCard(ctx, "500124")
			convey.So(errors.Is(err, roster.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("A broken rewrite keeps the previous snapshot", func() {
			writeStartList(t, path, "<NotAStartList/>")
			convey.So(r.Refresh(ctx), convey.ShouldNotBeNil)

			entry, err := r.LookupCard(ctx, "500124")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Bib, convey.ShouldEqual, "12")
		})

		convey.Convey("After Stop lookups fail", func() {
			convey.So(r.Stop(), convey.ShouldBeNil)
			convey.So(r.IsRunning(), convey.ShouldBeFalse)
			_, err := r.LookupCard(ctx, "500124")
			convey.So(errors.Is(err, roster.ErrNotRunning), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given lookups racing against reloads", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "startlist.xml")
		writeStartList(t, path, startListXML)

		r := roster.NewFile(path, "", nil)
		convey.So(r.Start(ctx), convey.ShouldBeNil)
		defer r.Stop()

		stop := make(chan struct{})
		bad := make(chan string, 1)
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					// 500123 exists in both generations with a different bib,
					// 500124 only in the first. Anything else means a lookup
					// saw a half-replaced snapshot.
					if entry, err := r.LookupCard(ctx, "500123"); err != nil || (entry.Bib != "12" && entry.Bib != "99") {
						select {
						case bad <- fmt.Sprintf("card 500123: %+v (%v)", entry, err):
						default:
						}
						return
					}
					entry, err := r.LookupCard(ctx, "500124")
					switch {
					case err == nil && entry.Bib == "12":
					case errors.Is(err, roster.ErrNotFound):
					default:
						select {
						case bad <- fmt.Sprintf("card 500124: %+v (%v)", entry, err):
						default:
						}
						return
					}
				}
			}()
		}

		for i := 0; i < 50; i++ {
			content := startListXML
			if i%2 == 0 {
				content = updatedStartListXML
			}
			writeStartList(t, path, content)
			convey.So(r.Refresh(ctx), convey.ShouldBeNil)
		}
		close(stop)
		wg.Wait()

		convey.Convey("Every lookup sees exactly one generation", func() {
			select {
			case msg := <-bad:
				convey.So(msg, convey.ShouldBeEmpty)
			default:
			}
		})
	})

	convey.Convey("Given a zipped start list", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "startlist.zip")

		f, err := os.Create(path)
		convey.So(err, convey.ShouldBeNil)
		zw := zip.NewWriter(f)
		w, err := zw.Create("SOFTSTRT.XML")
		convey.So(err, convey.ShouldBeNil)
		_, err = w.Write([]byte(startListXML))
		convey.So(err, convey.ShouldBeNil)
		convey.So(zw.Close(), convey.ShouldBeNil)
		convey.So(f.Close(), convey.ShouldBeNil)

		r := roster.NewFile(path, "", nil)
		convey.So(r.Start(ctx), convey.ShouldBeNil)
		defer r.Stop()

		convey.Convey("The archived start list resolves cards", func() {
			entry, err := r.LookupCard(ctx, "500123")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Bib, convey.ShouldEqual, "12")
			convey.So(entry.Leg, convey.ShouldEqual, "1")
		})
	})

	convey.Convey("Given a windows-1252 encoded start list", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "startlist.xml")

		// 0xE4 is ä in windows-1252.
		latin := `<?xml version="1.0" encoding="windows-1252"?>
<StartList xmlns="http://www.orienteering.org/datastandard/3.0">
  <Event><Name>V` + "\xe4" + `strelittan</Name></Event>
  <ClassStart>
    <TeamStart>
      <BibNumber>7</BibNumber>
      <TeamMemberStart>
        <Start><Leg>1</Leg><ControlCard>400001</ControlCard></Start>
      </TeamMemberStart>
    </TeamStart>
  </ClassStart>
</StartList>`
		writeStartList(t, path, latin)

		r := roster.NewFile(path, "", nil)
		convey.So(r.Start(ctx), convey.ShouldBeNil)
		defer r.Stop()

		convey.Convey("The legacy encoding parses", func() {
			entry, err := r.LookupCard(ctx, "400001")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Bib, convey.ShouldEqual, "7")
		})
	})
}
